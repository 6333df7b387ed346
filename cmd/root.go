package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/multiai/cli/internal/logging"
	"github.com/spf13/cobra"
)

// DebugEnv turns on debug logging when set to a non-empty value.
const DebugEnv = "MULTIAI_DEBUG"

// stdout receives machine-readable output (JSON, raw replies, exports).
var stdout io.Writer = os.Stdout

var rootCmd = &cobra.Command{
	Use:   "multiai",
	Short: "Chat with Gemini, OpenAI, Claude and other models from your terminal",
	Long: `multiai talks to several LLM providers from one place.

Conversations are kept locally (the 50 most recent), API keys live in the OS
keychain or in environment variables, and messages can carry an image, a text
or PDF file, a page screenshot or your clipboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		logging.SetDebug(debug || os.Getenv(DebugEnv) != "")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("provider", "p", "", "Provider to use instead of the configured one")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory holding config.yaml and the history database (default $MULTIAI_DATA_DIR or the user config dir)")
	rootCmd.PersistentFlags().Bool("debug", false, "Print debug logs to stderr")
}

// Execute runs the root command with fang's help and error rendering.
func Execute(ctx context.Context, version string) error {
	return fang.Execute(ctx, rootCmd, fang.WithVersion(version))
}

func checkOutput(output string) error {
	if output != "" && output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}
	return nil
}
