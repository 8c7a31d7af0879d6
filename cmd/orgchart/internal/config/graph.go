package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/orgchart/pkg/remote"
)

// graphFile is the per-context file describing the graph store.
const graphFile = "graph.yaml"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
	StoreRemote = "remote"
)

// Graph describes which store a context uses and how to reach it.
type Graph struct {
	Store    string `yaml:"store" json:"store"`
	Dir      string `yaml:"dir,omitempty" json:"dir,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
	TLS      bool   `yaml:"tls,omitempty" json:"tls,omitempty"`
}

// Keys lists the settable keys of a Graph config.
var Keys = []string{"store", "dir", "endpoint", "port", "tls"}

// DefaultGraph is used when no context is selected or a context has no
// graph.yaml: an in-process memory store.
func DefaultGraph() *Graph {
	return &Graph{Store: StoreMemory}
}

// LoadGraph reads graph.yaml from a context directory. A missing file
// yields DefaultGraph.
func LoadGraph(contextDir string) (*Graph, error) {
	data, err := os.ReadFile(filepath.Join(contextDir, graphFile))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultGraph(), nil
		}
		return nil, fmt.Errorf("read %s: %w", graphFile, err)
	}

	g := DefaultGraph()
	if err := yaml.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Join(contextDir, graphFile), err)
	}
	if g.Store == "" {
		g.Store = StoreMemory
	}
	return g, nil
}

// SaveGraph writes g to graph.yaml in a context directory.
func SaveGraph(contextDir string, g *Graph) error {
	if err := os.MkdirAll(contextDir, 0755); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}

	data, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal graph config: %w", err)
	}

	path := filepath.Join(contextDir, graphFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Set assigns one key from its string form.
func (g *Graph) Set(key, value string) error {
	switch key {
	case "store":
		switch value {
		case StoreMemory, StoreBadger, StoreRemote:
			g.Store = value
		default:
			return fmt.Errorf("invalid store %q: want memory, badger or remote", value)
		}
	case "dir":
		g.Dir = value
	case "endpoint":
		g.Endpoint = value
	case "port":
		p, err := strconv.Atoi(value)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid port %q", value)
		}
		g.Port = p
	case "tls":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid tls value %q: %w", value, err)
		}
		g.TLS = b
	default:
		return fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// Get returns one key in string form.
func (g *Graph) Get(key string) (string, error) {
	switch key {
	case "store":
		return g.Store, nil
	case "dir":
		return g.Dir, nil
	case "endpoint":
		return g.Endpoint, nil
	case "port":
		return strconv.Itoa(g.port()), nil
	case "tls":
		return strconv.FormatBool(g.TLS), nil
	}
	return "", fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(Keys, ", "))
}

// Validate reports settings the selected store cannot work without.
func (g *Graph) Validate() error {
	switch g.Store {
	case StoreMemory:
		return nil
	case StoreBadger:
		if g.Dir == "" {
			return errors.New("badger store requires dir")
		}
		return nil
	case StoreRemote:
		if g.Endpoint == "" {
			return errors.New("remote store requires endpoint")
		}
		return nil
	}
	return fmt.Errorf("invalid store %q", g.Store)
}

func (g *Graph) port() int {
	if g.Port == 0 {
		return remote.DefaultPort
	}
	return g.Port
}

// URL returns the websocket URL of a remote store.
func (g *Graph) URL() string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(g.Endpoint, strconv.Itoa(g.port())),
		Path:   remote.Path,
	}
	if g.TLS {
		u.Scheme = "wss"
	}
	return u.String()
}
