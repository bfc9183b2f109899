package main

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/morphd/pkg/cobrax/topics"
	"github.com/arthur-debert/morphd/pkg/logging"
)

// Populated via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

//go:embed docs
var docsFS embed.FS

var (
	verbosity  int
	configPath string

	rootCmd = &cobra.Command{
		Use:   "morphd",
		Short: "A file conversion daemon driven by renames",
		Long: `morphd watches directories for files renamed with a bang extension
(photo.!jpg, clip.!!webm) and converts them in place, preserving the
original owner and keeping a version history so conversions can be
undone by converting back.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the CLI. Called once from main.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is /etc/morphd/config.toml)")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(manCmd)

	if sub, err := fs.Sub(docsFS, "docs"); err == nil {
		if tm, err := topics.NewManager(sub, topics.DefaultRenderer()); err == nil {
			tm.Attach(rootCmd)
		}
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print version information for morphd`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("morphd version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `To load completions:

Bash:
  $ source <(morphd completion bash)
  # To load completions for each session, execute once:
  $ morphd completion bash > /etc/bash_completion.d/morphd

Zsh:
  $ morphd completion zsh > "${fpath[1]}/_morphd"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ morphd completion fish | source
  # To load completions for each session, execute once:
  $ morphd completion fish > ~/.config/fish/completions/morphd.fish

PowerShell:
  PS> morphd completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			if err := cmd.Root().GenBashCompletion(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate bash completion")
			}
		case "zsh":
			if err := cmd.Root().GenZshCompletion(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate zsh completion")
			}
		case "fish":
			if err := cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true); err != nil {
				log.Error().Err(err).Msg("Failed to generate fish completion")
			}
		case "powershell":
			if err := cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate powershell completion")
			}
		}
	},
}

var manCmd = &cobra.Command{
	Use:   "man",
	Short: "Generate man page",
	Long:  `Generate man page for morphd`,
	RunE: func(cmd *cobra.Command, args []string) error {
		header := &doc.GenManHeader{
			Title:   "MORPHD",
			Section: "8",
		}
		return doc.GenManTree(rootCmd, header, "/tmp")
	},
}
