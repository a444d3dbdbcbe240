package sqlrel

import "github.com/roach88/relq/internal/expr"

// Assignment sets one column to the value of an expression, in Insert and
// Update commands.
type Assignment struct {
	Column *Column
	Value  expr.Expr
}

// Insert is a row insertion command.
type Insert struct {
	Table       *Table
	Assignments []Assignment
}

func (c *Insert) Op() expr.Op     { return OpInsert }
func (c *Insert) Type() expr.Type { return expr.IntType() }

// Update modifies rows matching Where (all rows when Where is nil).
type Update struct {
	Table       *Table
	Assignments []Assignment
	Where       expr.Expr
}

func (c *Update) Op() expr.Op     { return OpUpdate }
func (c *Update) Type() expr.Type { return expr.IntType() }

// Delete removes rows matching Where (all rows when Where is nil).
type Delete struct {
	Table *Table
	Where expr.Expr
}

func (c *Delete) Op() expr.Op     { return OpDelete }
func (c *Delete) Type() expr.Type { return expr.IntType() }

// If is a conditional command. It is representable in the model but has no
// SQL rendering; reaching the formatter with one is a formatting error.
type If struct {
	Check   expr.Expr
	IfTrue  expr.Expr
	IfFalse expr.Expr
}

func (c *If) Op() expr.Op     { return OpIf }
func (c *If) Type() expr.Type { return c.IfTrue.Type() }

// Block is a command sequence. Like If, it never renders as SQL.
type Block struct {
	Commands []expr.Expr
}

func (c *Block) Op() expr.Op { return OpBlock }
func (c *Block) Type() expr.Type {
	if n := len(c.Commands); n > 0 {
		return c.Commands[n-1].Type()
	}
	return expr.Type{}
}

// Declaration introduces named values computed by a single-row select.
// Representable only; never renders as SQL.
type Declaration struct {
	Names  []string
	Source *Select
}

func (c *Declaration) Op() expr.Op     { return OpDeclaration }
func (c *Declaration) Type() expr.Type { return expr.Type{} }
