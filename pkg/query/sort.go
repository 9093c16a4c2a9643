package query

import (
	"fmt"
	"sort"

	"github.com/Syras206/slimcryptdb/pkg/table"
)

// Sort names the single column and direction a result set orders by.
type Sort struct {
	Column     string
	Descending bool
}

// Apply stable-sorts rows by s.Column, preserving insertion order for
// equal keys.
func Apply(rows []*table.Record, s *Sort) []*table.Record {
	if s == nil || s.Column == "" {
		return rows
	}

	sort.SliceStable(rows, func(i, j int) bool {
		vi, _ := rows[i].Get(s.Column)
		vj, _ := rows[j].Get(s.Column)
		if s.Descending {
			return lessValue(vj, vi)
		}
		return lessValue(vi, vj)
	})
	return rows
}

func lessValue(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}

// Page describes the offset/limit pagination applied after sort.
type Page struct {
	Offset int
	Limit  int // 0 means "no limit"
}

// Paginate skips p.Offset rows then takes up to p.Limit.
func Paginate(rows []*table.Record, p *Page) []*table.Record {
	if p == nil {
		return rows
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]

	if p.Limit > 0 && p.Limit < len(rows) {
		rows = rows[:p.Limit]
	}
	return rows
}
