package query_test

import (
	"testing"

	"github.com/Syras206/slimcryptdb/pkg/query"
	"github.com/Syras206/slimcryptdb/pkg/table"
)

func row(fields map[string]any) *table.Record {
	r := table.NewRecord()
	for k, v := range fields {
		r.Set(k, v)
	}
	return r
}

func TestFilter_LeafEquals(t *testing.T) {
	f := query.Leaf("age", query.Eq, 30.0)
	ok, err := f.Match(row(map[string]any{"age": 30.0}))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !ok {
		t.Errorf("expected age == 30 to match")
	}
}

func TestFilter_MissingColumnEvaluatesFalse(t *testing.T) {
	f := query.Leaf("missing", query.Eq, "x")
	ok, err := f.Match(row(map[string]any{"present": "x"}))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if ok {
		t.Errorf("a condition on a missing column must evaluate false")
	}
}

func TestFilter_AndRequiresAllChildren(t *testing.T) {
	f := query.Composite(query.And,
		query.Leaf("age", query.GTE, 18.0),
		query.Leaf("active", query.Eq, true),
	)
	match := row(map[string]any{"age": 25.0, "active": true})
	noMatch := row(map[string]any{"age": 25.0, "active": false})

	if ok, _ := f.Match(match); !ok {
		t.Errorf("expected match when both conditions hold")
	}
	if ok, _ := f.Match(noMatch); ok {
		t.Errorf("expected no match when one condition fails")
	}
}

func TestFilter_OrRequiresAnyChild(t *testing.T) {
	f := query.Composite(query.Or,
		query.Leaf("role", query.Eq, "admin"),
		query.Leaf("role", query.Eq, "owner"),
	)
	if ok, _ := f.Match(row(map[string]any{"role": "owner"})); !ok {
		t.Errorf("expected match on second alternative")
	}
	if ok, _ := f.Match(row(map[string]any{"role": "guest"})); ok {
		t.Errorf("expected no match when neither alternative holds")
	}
}

func TestFilter_ComparisonOperators(t *testing.T) {
	cases := []struct {
		op   query.CmpOp
		val  float64
		want bool
	}{
		{query.GT, 5.0, true},
		{query.GT, 10.0, false},
		{query.GTE, 10.0, true},
		{query.LT, 20.0, true},
		{query.LTE, 10.0, true},
		{query.NotEq, 5.0, true},
	}
	r := row(map[string]any{"n": 10.0})
	for _, c := range cases {
		f := query.Leaf("n", c.op, c.val)
		ok, err := f.Match(r)
		if err != nil {
			t.Fatalf("op %q failed: %v", c.op, err)
		}
		if ok != c.want {
			t.Errorf("op %q with value %v: got %v, want %v", c.op, c.val, ok, c.want)
		}
	}
}

func TestFilter_In(t *testing.T) {
	f := query.Leaf("status", query.In, []any{"open", "pending"})
	if ok, _ := f.Match(row(map[string]any{"status": "pending"})); !ok {
		t.Errorf("expected 'pending' to be in the set")
	}
	if ok, _ := f.Match(row(map[string]any{"status": "closed"})); ok {
		t.Errorf("expected 'closed' to not be in the set")
	}
}

func TestFilter_LikeIsCaseInsensitive(t *testing.T) {
	f := query.Leaf("name", query.Like, "^ada")
	if ok, _ := f.Match(row(map[string]any{"name": "Ada Lovelace"})); !ok {
		t.Errorf("expected case-insensitive match")
	}
}

func TestFilter_ContainsIsCaseSensitive(t *testing.T) {
	f := query.Leaf("name", query.Contains, "Ada")
	if ok, _ := f.Match(row(map[string]any{"name": "Ada Lovelace"})); !ok {
		t.Errorf("expected exact-case substring match")
	}
	if ok, _ := f.Match(row(map[string]any{"name": "ada lovelace"})); ok {
		t.Errorf("contains must be case-sensitive")
	}
}

func TestFilter_NilFilterAlwaysMatches(t *testing.T) {
	var f *query.Filter
	ok, err := f.Match(row(map[string]any{"x": 1.0}))
	if err != nil || !ok {
		t.Errorf("a nil filter should match everything, got ok=%v err=%v", ok, err)
	}
}
