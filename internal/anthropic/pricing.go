package anthropic

import "strings"

// Price is shown as $USD per 1M tokens
const (
	HAIKU_INPUT_COST  = 0.80 / 1000000
	HAIKU_OUTPUT_COST = 4.00 / 1000000

	SONNET_INPUT_COST  = 3.00 / 1000000
	SONNET_OUTPUT_COST = 15.00 / 1000000

	OPUS_INPUT_COST  = 15.00 / 1000000
	OPUS_OUTPUT_COST = 75.00 / 1000000
)

// Cost estimates the dollar cost of a query from its token usage. Cache
// creation and cache read tokens are billed at the input rate, which slightly
// overestimates reads. Unknown model families cost 0.
func Cost(model string, usage Usage) float64 {
	inputTokens := float64(usage.InputTokens + usage.CacheCreationInputTokens + usage.CacheReadInputTokens)
	outputTokens := float64(usage.OutputTokens)

	switch {
	case strings.Contains(model, "haiku"):
		return inputTokens*HAIKU_INPUT_COST + outputTokens*HAIKU_OUTPUT_COST
	case strings.Contains(model, "sonnet"):
		return inputTokens*SONNET_INPUT_COST + outputTokens*SONNET_OUTPUT_COST
	case strings.Contains(model, "opus"):
		return inputTokens*OPUS_INPUT_COST + outputTokens*OPUS_OUTPUT_COST
	default:
		return 0
	}
}
