package main

import (
	"os"

	"github.com/davidhbaek/promptrun/internal/openai"
)

func main() {
	os.Exit(openai.SpeechCLI(os.Args[1:]))
}
