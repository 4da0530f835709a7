package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/chia-ai0924/line-gpt-chatbot/cmd/linegpt/internal/serve"
)

func NewLinegptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "linegpt",
		Short:   "LINE chatbot that analyzes shared images with OCR, translation, and an LLM",
		Example: "linegpt serve",
	}

	cmd.AddCommand(
		serve.NewServeCommand(),
	)

	return cmd
}

func main() {
	cmd := NewLinegptCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
