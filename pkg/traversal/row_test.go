package traversal_test

import (
	"encoding/json"
	"testing"

	"github.com/haivivi/orgchart/pkg/traversal"
)

func TestRow_JSONKeepsOrder(t *testing.T) {
	r, err := traversal.NewRow([]string{"Role", "Name", "Level"}, []any{"Intern", "Ashok", nil})
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Role":"Intern","Name":"Ashok","Level":null}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestRow_Accessors(t *testing.T) {
	keys := []string{"Name", "Role"}
	values := []any{"Alice", "Manager"}
	r, err := traversal.NewRow(keys, values)
	if err != nil {
		t.Fatal(err)
	}
	keys[0] = "X"
	values[0] = "Y"

	if v, ok := r.Get("Name"); !ok || v != "Alice" {
		t.Fatalf("Get(Name) = %v, %v", v, ok)
	}
	if _, ok := r.Get("Missing"); ok {
		t.Fatal("Get(Missing) should report false")
	}
	if got := r.String(); got != "{Name: Alice, Role: Manager}" {
		t.Fatalf("String = %q", got)
	}
	m := r.Map()
	if len(m) != 2 || m["Role"] != "Manager" {
		t.Fatalf("Map = %v", m)
	}
	r.Values()[0] = "changed"
	if v, _ := r.Get("Name"); v != "Alice" {
		t.Fatal("Values must return a copy")
	}
}

func TestNewRow_LengthMismatch(t *testing.T) {
	r, err := traversal.NewRow([]string{"a"}, nil)
	if err == nil {
		t.Fatal("expected error for mismatched keys and values")
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
}
