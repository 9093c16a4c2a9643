// Package query implements the filter/sort/paginate/join evaluator
// the engine runs over a table's in-memory row sequence.
package query

import (
	"fmt"
	"regexp"
	"strings"

	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
	"github.com/Syras206/slimcryptdb/pkg/table"
)

// BoolOp is the composite connective a Filter node with children uses.
type BoolOp string

const (
	And BoolOp = "and"
	Or  BoolOp = "or"
)

// CmpOp is a leaf condition's comparison operator.
type CmpOp string

const (
	Eq       CmpOp = "=="
	NotEq    CmpOp = "!="
	GT       CmpOp = ">"
	GTE      CmpOp = ">="
	LT       CmpOp = "<"
	LTE      CmpOp = "<="
	In       CmpOp = "in"
	Like     CmpOp = "like"
	Contains CmpOp = "contains"
)

// Filter is one node of the recursive filter tree: either a composite
// (Operator set to And/Or, Conditions populated) or a leaf condition
// (Column/Op/Value set, Conditions empty).
type Filter struct {
	Operator   BoolOp
	Conditions []*Filter

	Column string
	Op     CmpOp
	Value  any
}

// Leaf builds a single comparison condition.
func Leaf(column string, op CmpOp, value any) *Filter {
	return &Filter{Column: column, Op: op, Value: value}
}

// Composite builds an and/or node over children.
func Composite(op BoolOp, children ...*Filter) *Filter {
	return &Filter{Operator: op, Conditions: children}
}

func (f *Filter) isLeaf() bool { return len(f.Conditions) == 0 }

// Match evaluates f against row. Missing columns evaluate any leaf
// condition referencing them to false; there is no three-valued logic.
func (f *Filter) Match(row *table.Record) (bool, error) {
	if f == nil {
		return true, nil
	}
	if f.isLeaf() {
		return matchLeaf(f, row)
	}

	switch f.Operator {
	case Or:
		for _, child := range f.Conditions {
			ok, err := child.Match(row)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default: // And
		for _, child := range f.Conditions {
			ok, err := child.Match(row)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
}

func matchLeaf(f *Filter, row *table.Record) (bool, error) {
	actual, present := row.Get(f.Column)
	if !present {
		return false, nil
	}

	switch f.Op {
	case Eq:
		return equal(actual, f.Value), nil
	case NotEq:
		return !equal(actual, f.Value), nil
	case GT, GTE, LT, LTE:
		return compareNumericOrString(actual, f.Value, f.Op)
	case In:
		items, ok := f.Value.([]any)
		if !ok {
			return false, &dberrors.ValidationError{Field: f.Column, Reason: "'in' requires an array value"}
		}
		for _, item := range items {
			if equal(actual, item) {
				return true, nil
			}
		}
		return false, nil
	case Like:
		return matchRegex(actual, f.Value, true)
	case Contains:
		return matchRegex(actual, f.Value, false)
	default:
		return false, &dberrors.ValidationError{Field: f.Column, Reason: fmt.Sprintf("unsupported operator %q", f.Op)}
	}
}

func equal(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareNumericOrString(a, b any, op CmpOp) (bool, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	var cmp int
	if aok && bok {
		switch {
		case af < bf:
			cmp = -1
		case af > bf:
			cmp = 1
		default:
			cmp = 0
		}
	} else {
		as := fmt.Sprintf("%v", a)
		bs := fmt.Sprintf("%v", b)
		cmp = strings.Compare(as, bs)
	}

	switch op {
	case GT:
		return cmp > 0, nil
	case GTE:
		return cmp >= 0, nil
	case LT:
		return cmp < 0, nil
	case LTE:
		return cmp <= 0, nil
	}
	return false, &dberrors.ValidationError{Reason: fmt.Sprintf("unsupported comparison operator %q", op)}
}

func toFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func matchRegex(actual, pattern any, caseInsensitive bool) (bool, error) {
	patStr, ok := pattern.(string)
	if !ok {
		return false, &dberrors.ValidationError{Reason: "like/contains require a string pattern"}
	}
	if caseInsensitive {
		patStr = "(?i)" + patStr
	}
	re, err := regexp.Compile(patStr)
	if err != nil {
		return false, &dberrors.ValidationError{Reason: fmt.Sprintf("invalid regular expression: %v", err)}
	}
	return re.MatchString(fmt.Sprintf("%v", actual)), nil
}
