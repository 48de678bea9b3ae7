// Package cmd implements the keyissuer CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gobeyondidentity/keyissuer/internal/config"
	"github.com/gobeyondidentity/keyissuer/internal/version"
	"github.com/gobeyondidentity/keyissuer/pkg/clierror"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// globalOptions holds persistent flags shared by every subcommand.
type globalOptions struct {
	configPath   string
	outputFormat string
}

// loadConfig loads configuration from --config (or KEYISSUER_CONFIG), the
// environment and defaults.
func (o *globalOptions) loadConfig() (config.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, clierror.ConfigInvalid(err)
	}
	return cfg, nil
}

// NewRootCmd builds the keyissuer command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "keyissuer",
		Short: "🔑 API credential issuer with confirmation tracking",
		Long: `keyissuer hands out opaque API credentials over HTTP and tracks whether
each client confirms receipt within a short window.

Every transition (issued, confirmed, rejected, timed out) is appended to a
durable status log that can be inspected with 'keyissuer log'.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.outputFormat {
			case outputTable, outputJSON, outputYAML:
				return nil
			default:
				return clierror.InvalidArgument("unknown output format %q (want table, json or yaml)", opts.outputFormat)
			}
		},
	}

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return clierror.InvalidArgument("%s", err)
	})

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config file (env: "+config.EnvConfigFile+")")
	root.PersistentFlags().StringVarP(&opts.outputFormat, "output", "o", outputTable, "Output format: table, json, yaml")

	root.AddCommand(
		newServeCmd(opts),
		newLogCmd(opts),
		newGenerateCmd(opts),
		newVersionCmd(opts),
		newCompletionCmd(root),
	)
	return root
}

func newCompletionCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for keyissuer.

To load completions:

Bash:
  source <(keyissuer completion bash)

Zsh:
  source <(keyissuer completion zsh)

Fish:
  keyissuer completion fish > ~/.config/fish/completions/keyissuer.fish

PowerShell:
  keyissuer completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unknown shell: %s", args[0])
			}
		},
	}
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	err := root.Execute()
	if err == nil {
		return clierror.ExitSuccess
	}

	format, _ := root.PersistentFlags().GetString("output")
	cliErr := clierror.From(err)
	clierror.PrintError(os.Stderr, cliErr, format)
	return cliErr.ExitCode
}

// formatOutput writes data as JSON or YAML. It returns false for table
// output, which each command renders itself.
func formatOutput(w io.Writer, format string, data interface{}) (bool, error) {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(data)
	case outputYAML:
		out, err := yaml.Marshal(data)
		if err != nil {
			return true, err
		}
		_, err = w.Write(out)
		return true, err
	default:
		return false, nil
	}
}
