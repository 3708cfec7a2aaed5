package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/docguard/internal/check"
	"github.com/roach88/docguard/internal/check/rules"
)

// CheckInfo describes one registered check.
type CheckInfo struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// NewChecksCommand creates the checks command.
func NewChecksCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checks",
		Short: "List registered checks",
		Long: `List every built-in check and whether the configuration activates it.

Example:
  docguard checks --config docguard.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecks(rootOpts, cmd)
		},
	}
	return cmd
}

func runChecks(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	// Listing needs no database; the navigation check is never run here.
	all, active, err := buildRegistries(cfg, nil, newLogger(cmd.ErrOrStderr(), opts.Verbose, slog.LevelWarn))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure checks", err)
	}

	infos := describeChecks(all, active)
	return newFormatter(opts, cmd).Success(infos, func(w io.Writer) {
		for _, c := range infos {
			mark := " "
			if c.Active {
				mark = "*"
			}
			fmt.Fprintf(w, "%s %s\n", mark, c.Name)
		}
		fmt.Fprintf(w, "%d check(s), %d active; built-in defaults: %v\n", len(infos), active.Len(), rules.DefaultNames())
	})
}

func describeChecks(all, active *check.Registry) []CheckInfo {
	names := all.Names()
	infos := make([]CheckInfo, 0, len(names))
	for _, name := range names {
		_, on := active.Lookup(name)
		infos = append(infos, CheckInfo{Name: name, Active: on})
	}
	return infos
}
