package expr

// Kind identifies the value category of an expression's result.
//
// The kind drives type-directed formatting decisions downstream: whether an
// operator renders in logical or bitwise form, whether a boolean value needs
// a CASE wrapper in value position, and how literals are spelled.
type Kind int

const (
	// KindUnknown marks expressions whose type cannot be determined.
	// Reaching the formatter with an unknown-typed operand is an error.
	KindUnknown Kind = iota

	// KindInt covers all integer widths. Values are carried as int64.
	KindInt

	// KindFloat covers floating-point values, carried as float64.
	KindFloat

	// KindString is UTF-8 text.
	KindString

	// KindBool is a truth value. Boolean-typed expressions are the ones
	// subject to predicate/value position rewriting during formatting.
	KindBool

	// KindTime is a timestamp, carried as time.Time.
	KindTime

	// KindBytes is a raw blob.
	KindBytes

	// KindEntity marks a reference to a mapped entity sequence (a table
	// anchor). Only Constant nodes holding a catalog entity reference
	// carry this kind.
	KindEntity

	// KindRow is a composite value assembled by a New node.
	KindRow

	// KindSeq is a sequence of rows or values (the result of a query
	// operator chain).
	KindSeq
)

// String returns the kind name used in diagnostics and debug markers.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindBytes:
		return "bytes"
	case KindEntity:
		return "entity"
	case KindRow:
		return "row"
	case KindSeq:
		return "seq"
	default:
		return "unknown"
	}
}

// Type is the result type tag carried by every expression node.
//
// Nullable records whether the value may be SQL NULL. Nullability is what
// makes three-valued logic observable: comparisons against a nullable
// operand must normalize to IS [NOT] NULL forms when the other side is a
// null constant.
type Type struct {
	Kind     Kind
	Nullable bool
}

// Convenience constructors for the common types.

func IntType() Type    { return Type{Kind: KindInt} }
func FloatType() Type  { return Type{Kind: KindFloat} }
func StringType() Type { return Type{Kind: KindString, Nullable: true} }
func BoolType() Type   { return Type{Kind: KindBool} }
func TimeType() Type   { return Type{Kind: KindTime} }
func BytesType() Type  { return Type{Kind: KindBytes, Nullable: true} }
func SeqType() Type    { return Type{Kind: KindSeq} }
func RowType() Type    { return Type{Kind: KindRow} }

// AsNullable returns the same type with the nullable flag set.
func (t Type) AsNullable() Type {
	t.Nullable = true
	return t
}

// IsBool reports whether the type is boolean. Boolean-typed expressions
// require predicate/value context handling in the formatter.
func (t Type) IsBool() bool { return t.Kind == KindBool }

// IsNumeric reports whether the type participates in arithmetic.
func (t Type) IsNumeric() bool { return t.Kind == KindInt || t.Kind == KindFloat }
