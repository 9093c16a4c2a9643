package table_test

import (
	"encoding/json"
	"testing"

	"github.com/Syras206/slimcryptdb/pkg/table"
)

func TestRecord_SetGetRoundTrip(t *testing.T) {
	rec := table.NewRecord()
	rec.Set("id", "abc123")
	rec.Set("age", 30.0)
	rec.Set("active", true)

	if got, ok := rec.Get("id"); !ok || got != "abc123" {
		t.Fatalf("Get(id) = %v, %v", got, ok)
	}
	if got, ok := rec.Get("age"); !ok || got != 30.0 {
		t.Fatalf("Get(age) = %v, %v", got, ok)
	}
	if rec.ID() != "abc123" {
		t.Fatalf("ID() = %q, want abc123", rec.ID())
	}
}

func TestRecord_PreservesFieldOrder(t *testing.T) {
	rec := table.NewRecord()
	rec.Set("z", 1)
	rec.Set("a", 2)
	rec.Set("m", 3)

	want := []string{"z", "a", "m"}
	got := rec.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRecord_MarshalPreservesOrder(t *testing.T) {
	rec := table.NewRecord()
	rec.Set("id", "x")
	rec.Set("name", "alice")
	rec.Set("age", 42.0)

	data, err := rec.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	want := `{"id":"x","name":"alice","age":42}`
	if string(data) != want {
		t.Fatalf("MarshalJSON() = %s, want %s", data, want)
	}
}

func TestRecord_UnmarshalRoundTrip(t *testing.T) {
	src := table.NewRecord()
	src.Set("id", "abc")
	src.Set("name", "bob")
	src.Set("tags", []any{"x", "y"})

	data, err := src.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	dst := table.NewRecord()
	if err := dst.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}

	if dst.ID() != "abc" {
		t.Errorf("ID() = %q, want abc", dst.ID())
	}
	if got, _ := dst.Get("name"); got != "bob" {
		t.Errorf("Get(name) = %v, want bob", got)
	}
	if !sameKeys(dst.Keys(), []string{"id", "name", "tags"}) {
		t.Errorf("Keys() = %v, want [id name tags]", dst.Keys())
	}
}

func TestRecord_Clone_IsIndependent(t *testing.T) {
	src := table.NewRecord()
	src.Set("id", "abc")

	clone := src.Clone()
	clone.Set("id", "changed")

	if src.ID() != "abc" {
		t.Errorf("mutating the clone changed the original: ID() = %q", src.ID())
	}
}

func TestGenerateID_Is32HexChars(t *testing.T) {
	id, err := table.GenerateID()
	if err != nil {
		t.Fatalf("GenerateID failed: %v", err)
	}
	if len(id) != 32 {
		t.Fatalf("GenerateID() = %q, want 32 hex chars", id)
	}
	var probe json.RawMessage
	if err := json.Unmarshal([]byte(`"`+id+`"`), &probe); err != nil {
		t.Fatalf("generated id is not valid JSON string content: %v", err)
	}
}

func sameKeys(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
