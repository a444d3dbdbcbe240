package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	relq "github.com/roach88/relq"
	"github.com/roach88/relq/internal/catalog"
	"github.com/roach88/relq/internal/executor"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Params   []string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <catalog-dir> <query-file>",
		Short: "Run a query description against a SQLite database",
		Long: `Compile a YAML query description against a CUE catalog, execute it
against a SQLite database and print the result rows.

Named query parameters bind through repeated --param flags; values parse as
int, float or bool when they look like one, string otherwise.

Example:
  relq run --db ./shop.db ./catalog query.yaml
  relq run --db ./shop.db ./catalog query.yaml --param minPrice=10.5`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "query parameter as name=value (repeatable)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runQuery(opts *RunOptions, catalogDir, queryFile string, cmd *cobra.Command) error {
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
	doc, err := LoadQuery(queryFile)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeQueryFile, err.Error())
	}
	q, err := BuildQuery(doc, cat)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeQueryFile, err.Error())
	}

	params, err := parseParams(opts.Params)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeParams, err.Error())
	}

	plan, err := relq.Compile(q, cat)
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeTranslation, err.Error())
	}
	formatter.VerboseLog("SQL:\n%s", plan.SQL())

	sess, err := executor.Open(opts.Database)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
	}
	defer sess.Close()

	rows, err := relq.Query(cmd.Context(), sess, plan, params)
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeDatabase, err.Error())
	}
	defer rows.Close()

	headers := ResultColumns(doc, cat)
	var results []map[string]any
	for rows.Next() {
		row, ok := rows.Row().(map[string]any)
		if !ok {
			// Single-value projections arrive as bare scalars.
			row = map[string]any{"value": rows.Row()}
			headers = []string{"value"}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return fail(formatter, ExitFailure, ErrCodeDatabase, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"sql":  plan.SQL(),
			"rows": results,
		})
	}
	renderTable(formatter, headers, results)
	return nil
}

func renderTable(f *OutputFormatter, headers []string, rows []map[string]any) {
	w := table.NewWriter()
	w.SetOutputMirror(f.Writer)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	w.AppendHeader(header)

	for _, row := range rows {
		cells := make(table.Row, len(headers))
		for i, h := range headers {
			cells[i] = row[h]
		}
		w.AppendRow(cells)
	}
	w.Render()
	fmt.Fprintf(f.Writer, "(%d rows)\n", len(rows))
}

// parseParams converts name=value pairs into typed bindings.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected name=value", pair)
		}
		params[name] = parseParamValue(raw)
	}
	return params, nil
}

func parseParamValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
