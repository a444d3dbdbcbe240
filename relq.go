// Package relq compiles query expression trees to SQLite SQL and
// materializes result rows back through the query's projector.
//
// Compile runs the full translation pipeline: binding against a catalog,
// the relational rewrite passes and SQL formatting. The resulting Plan
// pairs the command text with the projection needed to rebuild result
// values, and executes through any executor.Session.
package relq

import (
	"context"
	"fmt"

	"github.com/roach88/relq/internal/binder"
	"github.com/roach88/relq/internal/catalog"
	"github.com/roach88/relq/internal/executor"
	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/plancache"
	"github.com/roach88/relq/internal/rewrite"
	"github.com/roach88/relq/internal/sqlfmt"
	"github.com/roach88/relq/internal/sqlrel"
)

// Aliases re-export the pipeline boundary types so callers outside this
// module can build queries and sessions without reaching into internal
// packages.
type (
	Expr    = expr.Expr
	Catalog = catalog.Catalog
	Session = executor.Session
	Rows    = executor.Rows
)

// Plan is a compiled query: immutable, reusable across executions and
// safe for concurrent use.
type Plan struct {
	commandText string
	paramNames  []string
	proj        *sqlrel.Projection
}

// SQL returns the executable command text.
func (p *Plan) SQL() string { return p.commandText }

// ParamNames lists the named parameters the plan expects, in first
// appearance order.
func (p *Plan) ParamNames() []string { return p.paramNames }

// Scalar reports whether the plan collapses to a single value rather than
// a row sequence.
func (p *Plan) Scalar() bool {
	return p.proj.Aggregator != sqlrel.AggregatorNone
}

// Explain renders the plan's relational tree in debug notation. The output
// marks untranslatable fragments inline and is never executable.
func (p *Plan) Explain() (string, error) {
	return sqlfmt.Format(p.proj, sqlfmt.Options{Debug: true})
}

func (p *Plan) bind(params map[string]any) ([]executor.Param, error) {
	bound := make([]executor.Param, 0, len(p.paramNames))
	for _, name := range p.paramNames {
		v, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("query parameter %q has no binding", name)
		}
		bound = append(bound, executor.Param{Name: name, Value: v})
	}
	return bound, nil
}

// CommandPlan is a compiled insert, update or delete.
type CommandPlan struct {
	commandText string
	paramNames  []string
}

// SQL returns the executable command text.
func (p *CommandPlan) SQL() string { return p.commandText }

// ParamNames lists the named parameters the command expects.
func (p *CommandPlan) ParamNames() []string { return p.paramNames }

// Compiler compiles expression trees against one catalog, optionally
// memoizing formatted text by structural signature.
type Compiler struct {
	cat   catalog.Catalog
	cache *plancache.Cache
}

// NewCompiler builds a Compiler. A nil cache disables memoization.
func NewCompiler(cat Catalog, cache *plancache.Cache) *Compiler {
	return &Compiler{cat: cat, cache: cache}
}

// Compile translates, rewrites and formats a query expression.
func (c *Compiler) Compile(e Expr) (*Plan, error) {
	bound, err := binder.Translate(e, c.cat)
	if err != nil {
		return nil, err
	}
	final := rewrite.Apply(bound)
	if err := sqlrel.Validate(final); err != nil {
		return nil, err
	}

	// Equal signatures imply equal formatted text, so a hit skips the
	// formatting pass. An unsignable tree compiles uncached.
	var sig string
	if c.cache != nil {
		if s, err := expr.Signature(e); err == nil {
			sig = s
			if entry, ok := c.cache.Get(sig); ok {
				return &Plan{commandText: entry.CommandText, paramNames: entry.ParamNames, proj: final}, nil
			}
		}
	}

	text, err := sqlfmt.Format(final, sqlfmt.Options{})
	if err != nil {
		return nil, err
	}
	names := collectParams(final.Select, final.Projector)
	if sig != "" {
		entry := c.cache.Put(sig, plancache.Entry{CommandText: text, ParamNames: names})
		text, names = entry.CommandText, entry.ParamNames
	}
	return &Plan{commandText: text, paramNames: names, proj: final}, nil
}

// CompileCommand translates, rewrites and formats an insert, update or
// delete expression.
func (c *Compiler) CompileCommand(e Expr) (*CommandPlan, error) {
	bound, err := binder.TranslateCommand(e, c.cat)
	if err != nil {
		return nil, err
	}
	final := rewrite.ApplyCommand(bound)
	if err := sqlrel.Validate(final); err != nil {
		return nil, err
	}
	text, err := sqlfmt.Format(final, sqlfmt.Options{})
	if err != nil {
		return nil, err
	}
	return &CommandPlan{commandText: text, paramNames: collectParams(final)}, nil
}

// Compile is the one-shot, uncached form of Compiler.Compile.
func Compile(e Expr, cat Catalog) (*Plan, error) {
	return NewCompiler(cat, nil).Compile(e)
}

// CompileCommand is the one-shot, uncached form of
// Compiler.CompileCommand.
func CompileCommand(e Expr, cat Catalog) (*CommandPlan, error) {
	return NewCompiler(cat, nil).CompileCommand(e)
}

// Query executes a compiled plan and returns the lazy row sequence.
func Query(ctx context.Context, sess Session, plan *Plan, params map[string]any) (*Rows, error) {
	bound, err := plan.bind(params)
	if err != nil {
		return nil, err
	}
	return executor.Execute(ctx, sess, plan.commandText, plan.proj, bound)
}

// QueryScalar executes a plan whose result collapses to one value (Count,
// First, ...) and applies its aggregator semantics.
func QueryScalar(ctx context.Context, sess Session, plan *Plan, params map[string]any) (any, error) {
	bound, err := plan.bind(params)
	if err != nil {
		return nil, err
	}
	return executor.ExecuteValue(ctx, sess, plan.commandText, plan.proj, bound)
}

// ExecCommand executes a compiled command and returns the affected row
// count.
func ExecCommand(ctx context.Context, sess Session, cmd *CommandPlan, params map[string]any) (int64, error) {
	bound := make([]executor.Param, 0, len(cmd.paramNames))
	for _, name := range cmd.paramNames {
		v, ok := params[name]
		if !ok {
			return 0, fmt.Errorf("command parameter %q has no binding", name)
		}
		bound = append(bound, executor.Param{Name: name, Value: v})
	}
	return executor.ExecuteCommand(ctx, sess, cmd.commandText, bound)
}

// collectParams gathers named parameter placeholders in first-appearance
// order across the finalized roots.
func collectParams(roots ...expr.Expr) []string {
	var names []string
	seen := map[string]bool{}
	for _, root := range roots {
		if root == nil {
			continue
		}
		sqlrel.Rewrite(root, func(e expr.Expr) expr.Expr {
			if nv, ok := e.(*sqlrel.NamedValue); ok && !seen[nv.Name] {
				seen[nv.Name] = true
				names = append(names, nv.Name)
			}
			return e
		})
	}
	return names
}
