package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/relq/internal/binder"
	"github.com/roach88/relq/internal/catalog"
	"github.com/roach88/relq/internal/rewrite"
	"github.com/roach88/relq/internal/sqlfmt"
	"github.com/roach88/relq/internal/sqlrel"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Debug bool
}

// ExplainResult is the JSON payload of a successful explain.
type ExplainResult struct {
	Entity string `yaml:"entity" json:"entity"`
	SQL    string `yaml:"sql" json:"sql"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <catalog-dir> <query-file>",
		Short: "Compile a query description to SQL",
		Long: `Compile a YAML query description against a CUE catalog and print the
resulting SQL without executing it.

With --debug, untranslatable fragments render as inline markers instead of
failing, which makes the offending node visible in context. Debug output is
never executable.

Example:
  relq explain ./catalog query.yaml
  relq explain ./catalog query.yaml --debug`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "render untranslatable fragments as markers")

	return cmd
}

func runExplain(opts *ExplainOptions, catalogDir, queryFile string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cat, err := catalog.Load(catalogDir)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeCatalog, err.Error())
	}
	formatter.VerboseLog("Loaded catalog from %s", catalogDir)

	doc, err := LoadQuery(queryFile)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeQueryFile, err.Error())
	}
	q, err := BuildQuery(doc, cat)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeQueryFile, err.Error())
	}
	formatter.VerboseLog("Query rooted at entity %s", doc.From)

	bound, err := binder.Translate(q, cat)
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeTranslation, err.Error())
	}
	final := rewrite.Apply(bound)
	if err := sqlrel.Validate(final); err != nil {
		return fail(formatter, ExitFailure, ErrCodeTranslation, err.Error())
	}

	text, err := sqlfmt.Format(final, sqlfmt.Options{Debug: opts.Debug})
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeTranslation, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(ExplainResult{Entity: doc.From, SQL: text})
	}
	fmt.Fprintln(formatter.Writer, text)
	return nil
}
