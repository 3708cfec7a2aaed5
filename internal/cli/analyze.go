package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/docguard/internal/analysis"
	"github.com/roach88/docguard/internal/doc"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	All bool
}

// AnalyzeOutcome is one document's analysis result.
type AnalyzeOutcome struct {
	analysis.Report
	Error string `json:"error,omitempty"`
}

// AnalyzeResult is the analyze command's output.
type AnalyzeResult struct {
	Documents []AnalyzeOutcome `json:"documents"`
	Changed   int              `json:"changed"`
	Failed    int              `json:"failed"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze [id...]",
		Short: "Analyze documents now",
		Long: `Run the active checks against documents and persist the reconciled
violation slots. A document is only saved when its violations changed.

With --all every documentation page is analyzed.

Exit codes:
  0 - All analyses completed
  1 - One or more analyses failed
  2 - Command error (bad config, unknown document, etc.)

Examples:
  docguard analyze Docs.Install Docs.Upgrade
  docguard analyze --all --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.All == (len(args) > 0) {
				return NewExitError(ExitCommandError, "give document IDs or --all, not both")
			}
			return runAnalyze(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "analyze every documentation page")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions, ids []string, cmd *cobra.Command) error {
	e, err := openEnv(opts.RootOptions, cmd, slog.LevelWarn)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmdContext(cmd)

	if opts.All {
		ids, err = documentationIDs(ctx, e)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list documents", err)
		}
	}

	manager := e.newManager(nil)
	result := AnalyzeResult{Documents: make([]AnalyzeOutcome, 0, len(ids))}

	for _, id := range ids {
		d, err := e.store.Fetch(ctx, id)
		if errors.Is(err, doc.ErrNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("document not found: %s", id))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read document", err)
		}

		report, err := manager.Analyze(ctx, d)
		if err != nil {
			result.Failed++
			result.Documents = append(result.Documents, AnalyzeOutcome{
				Report: analysis.Report{DocumentID: id, Version: d.Version, Added: []int{}, Removed: []int{}},
				Error:  err.Error(),
			})
			continue
		}
		if report.Changed {
			result.Changed++
		}
		result.Documents = append(result.Documents, AnalyzeOutcome{Report: report})
	}

	f := newFormatter(opts.RootOptions, cmd)
	text := func(w io.Writer) {
		for _, o := range result.Documents {
			switch {
			case o.Error != "":
				fmt.Fprintf(w, "✗ %s: %s\n", o.DocumentID, o.Error)
			case o.Changed:
				fmt.Fprintf(w, "✓ %s v%d: %d added, %d tombstoned\n", o.DocumentID, o.Version, len(o.Added), len(o.Removed))
			default:
				fmt.Fprintf(w, "✓ %s v%d: unchanged\n", o.DocumentID, o.Version)
			}
		}
		fmt.Fprintf(w, "Analyzed %d document(s): %d changed, %d failed\n", len(result.Documents), result.Changed, result.Failed)
	}

	if result.Failed > 0 {
		msg := fmt.Sprintf("%d analysis(es) failed", result.Failed)
		if err := f.Failure(CodeAnalysisFailed, msg, result, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return f.Success(result, text)
}

// documentationIDs lists documentation pages in ID order.
func documentationIDs(ctx context.Context, e *env) ([]string, error) {
	docs, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, d := range docs {
		if d.IsDocumentation() {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}
