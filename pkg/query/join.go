package query

import (
	"fmt"

	"github.com/Syras206/slimcryptdb/pkg/table"
)

// Join describes a lookup into another table: for each row, find a row
// in Table where Table[ForeignKey] == row[Key], then merge fields (the
// joined table's fields overwrite on conflict) and optionally project a
// subset of fields.
type Join struct {
	Table      string
	Key        string
	ForeignKey string
	Project    []string
}

// JoinApply merges, for each row, the first matching row from joined
// (keyed by the join's foreign key) into a copy of row. Rows with no
// match gain no fields; Project is applied to every row either way.
func JoinApply(rows []*table.Record, j *Join, joined []*table.Record) []*table.Record {
	if j == nil {
		return rows
	}

	byForeignKey := make(map[string]*table.Record, len(joined))
	for _, r := range joined {
		if v, ok := r.Get(j.ForeignKey); ok {
			k := stringifyForJoin(v)
			if _, seen := byForeignKey[k]; !seen {
				byForeignKey[k] = r
			}
		}
	}

	out := make([]*table.Record, len(rows))
	for i, row := range rows {
		merged := row.Clone()
		if v, ok := row.Get(j.Key); ok {
			if match, found := byForeignKey[stringifyForJoin(v)]; found {
				for _, field := range match.Keys() {
					fieldValue, _ := match.Get(field)
					merged.Set(field, fieldValue)
				}
			}
		}
		out[i] = project(merged, j.Project)
	}
	return out
}

func project(row *table.Record, fields []string) *table.Record {
	if len(fields) == 0 {
		return row
	}
	out := table.NewRecord()
	for _, f := range fields {
		if v, ok := row.Get(f); ok {
			out.Set(f, v)
		}
	}
	return out
}

func stringifyForJoin(v any) string {
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
