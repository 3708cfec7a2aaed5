package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/docguard/internal/source"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
}

// ImportSummary is the import command's output.
type ImportSummary struct {
	Dir       string          `json:"dir"`
	Results   []source.Result `json:"results"`
	Created   int             `json:"created"`
	Updated   int             `json:"updated"`
	Unchanged int             `json:"unchanged"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import [dir]",
		Short: "Import a directory of pages",
		Long: `Import every page file under a directory into the database.

Each file becomes one document whose ID is its path with separators
replaced by dots. A YAML front matter block sets the title and marks the
page as documentation. Files whose content is already stored are skipped.

Without a directory argument, source.dir from the config is used.

Example:
  docguard import --db ./docguard.db ./pages`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args, cmd)
		},
	}

	return cmd
}

func runImport(opts *ImportOptions, args []string, cmd *cobra.Command) error {
	e, err := openEnv(opts.RootOptions, cmd, slog.LevelWarn)
	if err != nil {
		return err
	}
	defer e.close()

	dir := e.cfg.Source.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return NewExitError(ExitCommandError, "no directory given and source.dir is not configured")
	}

	importer := source.NewImporter(e.store, dir,
		source.WithExtensions(e.cfg.Source.Extensions...),
		source.WithAuthor(e.cfg.Source.Author),
		source.WithLogger(e.logger),
	)
	results, err := importer.ImportDir(cmdContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "import failed", err)
	}

	summary := ImportSummary{Dir: dir, Results: results}
	for _, r := range results {
		switch r.Outcome {
		case source.OutcomeCreated:
			summary.Created++
		case source.OutcomeUpdated:
			summary.Updated++
		case source.OutcomeUnchanged:
			summary.Unchanged++
		}
	}

	return newFormatter(opts.RootOptions, cmd).Success(summary, func(w io.Writer) {
		for _, r := range results {
			fmt.Fprintf(w, "%-9s %s (v%d)\n", r.Outcome, r.DocumentID, r.Version)
		}
		fmt.Fprintf(w, "Imported %d file(s): %d created, %d updated, %d unchanged\n",
			len(results), summary.Created, summary.Updated, summary.Unchanged)
	})
}
