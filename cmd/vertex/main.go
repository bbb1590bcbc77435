package main

import (
	"os"

	"github.com/davidhbaek/promptrun/internal/llm"
)

func main() {
	os.Exit(llm.CLI("vertex", os.Args[1:]))
}
