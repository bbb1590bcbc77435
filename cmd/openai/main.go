package main

import (
	"os"

	"github.com/davidhbaek/promptrun/internal/llm"
)

func main() {
	os.Exit(llm.CLI("openai", os.Args[1:]))
}
