package expr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DomainPlan is the domain prefix for plan signatures. The version suffix
// enables future algorithm migration without colliding with old keys.
const DomainPlan = "relq/plan/v1"

// Signature computes the structural signature of an expression tree:
// SHA-256 over a canonical rendering, with domain separation.
//
// Two trees built independently but structurally equal produce the same
// signature, which is what makes the signature usable as a plan-cache key
// (equivalent queries are rebuilt as distinct tree instances on every call
// site, so reference equality is useless here).
//
// Canonical rendering rules:
//   - node fields are rendered in a fixed order;
//   - strings are NFC normalized before rendering;
//   - floats render via strconv 'g' so equal values render equally;
//   - lambda parameters are numbered by first encounter (p0, p1, ...), so
//     parameter display names never affect the signature.
//
// Returns an error if the tree contains a node kind outside the general and
// relational sets, since such a tree cannot have been produced by the
// supported pipeline.
func Signature(e Expr) (string, error) {
	var sb strings.Builder
	w := &sigWriter{params: map[*Parameter]int{}}
	if err := w.write(&sb, e); err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(DomainPlan))
	h.Write([]byte{0x00}) // null separator keeps domain/data boundary unambiguous
	h.Write([]byte(sb.String()))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Canonical returns the canonical rendering itself. Exposed for tests and
// for tooling that wants a human-readable structural identity.
func Canonical(e Expr) (string, error) {
	var sb strings.Builder
	w := &sigWriter{params: map[*Parameter]int{}}
	if err := w.write(&sb, e); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type sigWriter struct {
	params map[*Parameter]int
}

func (w *sigWriter) write(sb *strings.Builder, e Expr) error {
	if e == nil {
		sb.WriteString("nil")
		return nil
	}
	switch n := e.(type) {
	case *Constant:
		sb.WriteString("Const(")
		if err := writeConstValue(sb, n.Value); err != nil {
			return err
		}
		fmt.Fprintf(sb, ":%s)", n.ResultType.Kind)
	case *Parameter:
		id, ok := w.params[n]
		if !ok {
			id = len(w.params)
			w.params[n] = id
		}
		fmt.Fprintf(sb, "p%d", id)
	case *Member:
		sb.WriteString("Member(")
		if err := w.write(sb, n.Expr); err != nil {
			return err
		}
		sb.WriteByte(',')
		sb.WriteString(norm.NFC.String(n.Name))
		sb.WriteByte(')')
	case *Call:
		sb.WriteString("Call(")
		sb.WriteString(norm.NFC.String(n.Method))
		for _, a := range n.Args {
			sb.WriteByte(',')
			if err := w.write(sb, a); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
	case *Binary:
		fmt.Fprintf(sb, "Bin(%s,", n.BinOp)
		if err := w.write(sb, n.Left); err != nil {
			return err
		}
		sb.WriteByte(',')
		if err := w.write(sb, n.Right); err != nil {
			return err
		}
		sb.WriteByte(')')
	case *Unary:
		fmt.Fprintf(sb, "Un(%s,", n.UnOp)
		if err := w.write(sb, n.Operand); err != nil {
			return err
		}
		sb.WriteByte(')')
	case *Lambda:
		sb.WriteString("Lambda(")
		for i, p := range n.Params {
			if i > 0 {
				sb.WriteByte(',')
			}
			// Register parameters in declaration order before the body so
			// bodies referencing them render stable numbers.
			if _, ok := w.params[p]; !ok {
				w.params[p] = len(w.params)
			}
			fmt.Fprintf(sb, "p%d", w.params[p])
		}
		sb.WriteString("=>")
		if err := w.write(sb, n.Body); err != nil {
			return err
		}
		sb.WriteByte(')')
	case *New:
		sb.WriteString("New(")
		for i, f := range n.Fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(norm.NFC.String(f.Name))
			sb.WriteByte('=')
			if err := w.write(sb, f.Expr); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
	case *Conditional:
		sb.WriteString("Cond(")
		if err := w.write(sb, n.Test); err != nil {
			return err
		}
		sb.WriteByte(',')
		if err := w.write(sb, n.Then); err != nil {
			return err
		}
		sb.WriteByte(',')
		if err := w.write(sb, n.Else); err != nil {
			return err
		}
		sb.WriteByte(')')
	case Canonicalizer:
		// Relational nodes render themselves; see sqlrel.
		return n.WriteCanonical(sb, w.writeChild)
	default:
		return fmt.Errorf("signature: unsupported node %T (op %s)", e, e.Op())
	}
	return nil
}

func (w *sigWriter) writeChild(sb *strings.Builder, e Expr) error {
	return w.write(sb, e)
}

// Canonicalizer lets node sets outside this package participate in
// canonical rendering. The callback renders child expressions with the
// writer's parameter numbering.
type Canonicalizer interface {
	WriteCanonical(sb *strings.Builder, child func(*strings.Builder, Expr) error) error
}

func writeConstValue(sb *strings.Builder, v any) error {
	switch val := v.(type) {
	case nil:
		sb.WriteString("null")
	case string:
		fmt.Fprintf(sb, "%q", norm.NFC.String(val))
	case int64:
		fmt.Fprintf(sb, "%d", val)
	case int:
		fmt.Fprintf(sb, "%d", val)
	case float64:
		sb.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case bool:
		sb.WriteString(strconv.FormatBool(val))
	case time.Time:
		sb.WriteString(val.UTC().Format(time.RFC3339Nano))
	case []byte:
		sb.WriteString(hex.EncodeToString(val))
	case fmt.Stringer:
		// Entity references and other opaque anchors render via String.
		fmt.Fprintf(sb, "%q", norm.NFC.String(val.String()))
	default:
		return fmt.Errorf("signature: unsupported constant type %T", v)
	}
	return nil
}
