package query

import (
	"github.com/Syras206/slimcryptdb/pkg/index"
)

// IndexLookup resolves the id set query planning can use to skip a full
// table scan: an equality predicate on a column some index covers.
type IndexLookup struct {
	IndexName string
	IDs       []string
}

// PlanIndexLookup inspects f for a conjunction containing at least one
// equality predicate whose column participates in some index for this
// table. When several indexes apply, the first in insertion order
// (indexes' iteration order) wins. Returns nil if no index applies, in
// which case the caller falls back to a full table scan.
func PlanIndexLookup(f *Filter, indexes []*index.Index) *IndexLookup {
	if f == nil {
		return nil
	}

	equalities := collectEqualities(f)
	for _, idx := range indexes {
		if len(idx.Def.Columns) != 1 {
			continue // composite indexes only serve their full key, not a single-column plan
		}
		column := idx.Def.Columns[0]
		if value, ok := equalities[column]; ok {
			ids, found := idx.Lookup(index.StringifyValue(value))
			if !found {
				return &IndexLookup{IndexName: idx.Def.Name, IDs: nil}
			}
			return &IndexLookup{IndexName: idx.Def.Name, IDs: append([]string(nil), ids...)}
		}
	}
	return nil
}

// collectEqualities walks a conjunction (ignoring any "or" subtree,
// which cannot be safely resolved by a single index lookup) and returns
// every top-level column == value predicate it finds.
func collectEqualities(f *Filter) map[string]any {
	out := make(map[string]any)
	if f == nil {
		return out
	}
	if f.isLeaf() {
		if f.Op == Eq {
			out[f.Column] = f.Value
		}
		return out
	}
	if f.Operator != And {
		return out
	}
	for _, child := range f.Conditions {
		for k, v := range collectEqualities(child) {
			out[k] = v
		}
	}
	return out
}
