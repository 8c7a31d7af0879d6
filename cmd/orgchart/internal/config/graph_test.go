package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadGraph_Default(t *testing.T) {
	g, err := LoadGraph(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if g.Store != StoreMemory {
		t.Errorf("Store = %q, want memory", g.Store)
	}
}

func TestGraph_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	g := DefaultGraph()
	for k, v := range map[string]string{"store": "remote", "endpoint": "graph.example.com", "port": "9000", "tls": "true"} {
		if err := g.Set(k, v); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	if err := SaveGraph(dir, g); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadGraph(dir)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *g {
		t.Errorf("loaded = %+v, want %+v", loaded, g)
	}
	if got := loaded.URL(); got != "wss://graph.example.com:9000/graph" {
		t.Errorf("URL = %q", got)
	}
}

func TestLoadGraph_YAML(t *testing.T) {
	dir := t.TempDir()
	data := "store: badger\ndir: /var/lib/orgchart\n"
	if err := os.WriteFile(filepath.Join(dir, graphFile), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	g, err := LoadGraph(dir)
	if err != nil {
		t.Fatal(err)
	}
	if g.Store != StoreBadger || g.Dir != "/var/lib/orgchart" {
		t.Errorf("g = %+v", g)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestGraph_SetInvalid(t *testing.T) {
	g := DefaultGraph()
	tests := []struct{ key, value string }{
		{"store", "postgres"},
		{"port", "http"},
		{"port", "70000"},
		{"tls", "maybe"},
		{"color", "blue"},
	}
	for _, tt := range tests {
		if err := g.Set(tt.key, tt.value); err == nil {
			t.Errorf("Set(%s, %s) should fail", tt.key, tt.value)
		}
	}
}

func TestGraph_UnknownKeyListsKeys(t *testing.T) {
	g := DefaultGraph()
	setErr := g.Set("color", "blue")
	_, getErr := g.Get("color")
	for _, err := range []error{setErr, getErr} {
		if err == nil {
			t.Fatal("expected error for unknown key")
		}
		if !strings.Contains(err.Error(), "valid: store, dir, endpoint, port, tls") {
			t.Errorf("err = %q, want the valid keys listed", err)
		}
	}
}

func TestGraph_GetDefaults(t *testing.T) {
	g := &Graph{Store: StoreRemote, Endpoint: "localhost"}
	if port, _ := g.Get("port"); port != "8182" {
		t.Errorf("port = %q, want 8182", port)
	}
	if got := g.URL(); got != "ws://localhost:8182/graph" {
		t.Errorf("URL = %q", got)
	}
	if _, err := g.Get("nope"); err == nil {
		t.Error("Get should fail for unknown keys")
	}
}

func TestGraph_Validate(t *testing.T) {
	tests := []struct {
		g  Graph
		ok bool
	}{
		{Graph{Store: StoreMemory}, true},
		{Graph{Store: StoreBadger}, false},
		{Graph{Store: StoreBadger, Dir: "/tmp/x"}, true},
		{Graph{Store: StoreRemote}, false},
		{Graph{Store: StoreRemote, Endpoint: "h"}, true},
		{Graph{Store: "sqlite"}, false},
	}
	for _, tt := range tests {
		if err := tt.g.Validate(); (err == nil) != tt.ok {
			t.Errorf("Validate(%+v) = %v", tt.g, err)
		}
	}
}
