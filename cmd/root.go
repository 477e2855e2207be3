package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"inmovc/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "inmovc",
	Short: "InmoVC - turn real-estate PDFs into listing copy",
	Long: `InmoVC extracts text from real-estate PDFs (brochures, flyers, scanned
listings) and asks an LLM to write structured marketing copy for them:
a title, Portuguese and English descriptions, an Instagram post, key
features, target audience and a call to action.

Text is read natively when the PDF has a text layer and falls back to
OCR for scanned documents. Analysis tries the configured LLM providers
in order until one returns a valid result.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Debug().
			Str("version", version).
			Msg("InmoVC CLI executed")

		fmt.Println("Welcome to InmoVC!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
