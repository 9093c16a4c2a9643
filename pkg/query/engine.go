package query

import (
	"github.com/Syras206/slimcryptdb/pkg/index"
	"github.com/Syras206/slimcryptdb/pkg/table"
)

// Query is one request the engine evaluates against a single table's
// row sequence: filter, sort, paginate, then an optional join.
type Query struct {
	Filter *Filter
	Sort   *Sort
	Page   *Page
	Join   *Join
}

// Execute runs q against rows, consulting indexes (if any) to resolve an
// equality predicate's candidate id set before falling back to a full
// scan. joinedRows is the already-loaded row set of q.Join.Table, when a
// join is requested; callers are expected to have loaded it themselves
// since the query engine does not own table loading.
func Execute(rows []*table.Record, indexes []*index.Index, q *Query, joinedRows []*table.Record) ([]*table.Record, error) {
	candidates := rows
	if plan := PlanIndexLookup(q.Filter, indexes); plan != nil {
		candidates = candidatesFromIDs(rows, plan.IDs)
	}

	matched, err := filterRows(candidates, q.Filter)
	if err != nil {
		return nil, err
	}

	matched = Apply(matched, q.Sort)
	matched = Paginate(matched, q.Page)

	if q.Join != nil {
		matched = JoinApply(matched, q.Join, joinedRows)
	}

	return matched, nil
}

func filterRows(rows []*table.Record, f *Filter) ([]*table.Record, error) {
	if f == nil {
		return rows, nil
	}
	out := make([]*table.Record, 0, len(rows))
	for _, row := range rows {
		ok, err := f.Match(row)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func candidatesFromIDs(rows []*table.Record, ids []string) []*table.Record {
	if ids == nil {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]*table.Record, 0, len(ids))
	for _, row := range rows {
		if want[row.ID()] {
			out = append(out, row)
		}
	}
	return out
}
