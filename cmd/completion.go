package cmd

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for multiai.

Bash:
  $ source <(multiai completion bash)
  # Every session:
  $ multiai completion bash > /etc/bash_completion.d/multiai

Zsh:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc   # once, if needed
  $ multiai completion zsh > "${fpath[1]}/_multiai"

Fish:
  $ multiai completion fish > ~/.config/fish/completions/multiai.fish

PowerShell:
  PS> multiai completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()
		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(stdout, true)
		case "zsh":
			return root.GenZshCompletion(stdout)
		case "fish":
			return root.GenFishCompletion(stdout, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
