package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/varsync/internal/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config [file]",
		Short: "Validate a config file and print the effective config",
		Long: `Load a YAML or CUE config file, apply defaults, validate it and print
the effective configuration. Without a file, prints the defaults.

Exit codes:
  0 - Config valid
  2 - Config unreadable or invalid

Examples:
  varsync config varsync.yaml
  varsync config varsync.cue --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if len(args) == 1 {
				loaded, err := config.Load(args[0])
				if err != nil {
					if rootOpts.Format == "json" {
						_ = newFormatter(cmd, rootOpts).Error(ErrCodeBadConfig, err.Error())
					}
					return WrapExitError(ExitCommandError, "invalid config", err)
				}
				cfg = loaded
			}
			return outputConfig(cmd, rootOpts, cfg)
		},
	}
	return cmd
}

func outputConfig(cmd *cobra.Command, opts *RootOptions, cfg config.Config) error {
	f := newFormatter(cmd, opts)
	if opts.Format == "json" {
		return f.Success(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render config", err)
	}
	fmt.Fprint(f.Out, string(data))
	return nil
}
