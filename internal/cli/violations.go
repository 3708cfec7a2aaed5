package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/docguard/internal/doc"
)

// ViolationsOptions holds flags for the violations command.
type ViolationsOptions struct {
	*RootOptions
	Tombstones bool
}

// ViolationsResult is the violations command's output.
type ViolationsResult struct {
	DocumentID string     `json:"document"`
	Version    int64      `json:"version"`
	Slots      []doc.Slot `json:"slots"`
	Active     int        `json:"active"`
	Tombstones int        `json:"tombstones"`
}

// NewViolationsCommand creates the violations command.
func NewViolationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ViolationsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "violations <id>",
		Short: "List a document's violation slots",
		Long: `List the persisted violation slots of a document in index order.

Tombstoned slots are hidden unless --tombstones is given.

Example:
  docguard violations Docs.Install --tombstones`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runViolations(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Tombstones, "tombstones", false, "include tombstoned slots")

	return cmd
}

func runViolations(opts *ViolationsOptions, id string, cmd *cobra.Command) error {
	e, err := openEnv(opts.RootOptions, cmd, slog.LevelWarn)
	if err != nil {
		return err
	}
	defer e.close()

	d, err := e.store.Fetch(cmdContext(cmd), id)
	if errors.Is(err, doc.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("document not found: %s", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read document", err)
	}

	result := ViolationsResult{DocumentID: d.ID, Version: d.Version, Slots: []doc.Slot{}}
	result.Active = len(d.ActiveViolations())
	result.Tombstones = len(d.Slots) - result.Active
	for _, s := range d.Slots {
		if s.Tombstone && !opts.Tombstones {
			continue
		}
		result.Slots = append(result.Slots, s)
	}

	return newFormatter(opts.RootOptions, cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s v%d: %d active, %d tombstoned\n", d.ID, d.Version, result.Active, result.Tombstones)
		for _, s := range result.Slots {
			if s.Tombstone {
				fmt.Fprintf(w, "  #%d (tombstone)\n", s.Index)
				continue
			}
			fmt.Fprintf(w, "  #%d %s\n", s.Index, s.Violation)
		}
	})
}
