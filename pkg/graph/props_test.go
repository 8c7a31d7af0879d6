package graph_test

import (
	"math"
	"testing"

	"github.com/haivivi/orgchart/pkg/graph"
)

func TestEqualValues(t *testing.T) {
	tests := []struct {
		a, b any
		want bool
	}{
		{"Alice", "Alice", true},
		{"Alice", "alice", false},
		{1, float64(1), true},
		{int64(3), uint8(3), true},
		{float32(0.5), 0.5, true},
		{1, "1", false},
		{true, true, true},
		{true, 1, false},
		{nil, nil, true},
		{nil, "", false},
		{math.NaN(), math.NaN(), false},
		{[]string{"a"}, []string{"a"}, false},
	}
	for _, tt := range tests {
		if got := graph.EqualValues(tt.a, tt.b); got != tt.want {
			t.Errorf("EqualValues(%#v, %#v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPropsClone(t *testing.T) {
	var nilProps graph.Props
	if nilProps.Clone() != nil {
		t.Fatal("nil Props should clone to nil")
	}
	p := graph.Props{"name": "Alice"}
	cp := p.Clone()
	cp["name"] = "Bob"
	if p["name"] != "Alice" {
		t.Fatalf("original mutated: %v", p["name"])
	}
}

func TestRefString(t *testing.T) {
	if got := graph.VertexRef(7).String(); got != "v7" {
		t.Fatalf("VertexRef.String = %q", got)
	}
	if got := graph.EdgeRef(7).String(); got != "e7" {
		t.Fatalf("EdgeRef.String = %q", got)
	}
}

func TestParseElement(t *testing.T) {
	tests := []struct {
		in   string
		want graph.Element
	}{
		{"v7", graph.VertexRef(7)},
		{"e12", graph.EdgeRef(12)},
	}
	for _, tt := range tests {
		got, err := graph.ParseElement(tt.in)
		if err != nil {
			t.Fatalf("ParseElement(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseElement(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", "v", "v0", "x7", "v-1", "vv"} {
		if _, err := graph.ParseElement(bad); err == nil {
			t.Errorf("ParseElement(%q) should fail", bad)
		}
	}
}
