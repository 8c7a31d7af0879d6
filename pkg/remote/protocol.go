// Package remote serves a graph.Store over a websocket and provides a
// client that implements graph.Store against such a server.
//
// Every frame is a JSON text message. The client sends a Request and the
// server answers with a Response carrying the same id:
//
//	-> {"id":"6f1c...","op":"verticesByLabel","args":{"label":"person"}}
//	<- {"id":"6f1c...","result":[{"id":1,"label":"person","props":{...}}]}
//
// A failed operation answers with an error object whose kind is one of
// "reference", "execution" or "protocol".
package remote

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/haivivi/orgchart/pkg/graph"
)

// Path is the websocket endpoint served by Server.
const Path = "/graph"

// DefaultPort is the port the server listens on unless configured.
const DefaultPort = 8182

// Op names a store operation on the wire.
type Op string

const (
	OpAddVertex       Op = "addVertex"
	OpAddEdge         Op = "addEdge"
	OpDropAllEdges    Op = "dropAllEdges"
	OpDropAllVertices Op = "dropAllVertices"
	OpDropVertex      Op = "dropVertex"
	OpDropEdge        Op = "dropEdge"
	OpVerticesByLabel Op = "verticesByLabel"
	OpOutEdges        Op = "outEdges"
	OpVertex          Op = "vertex"
	OpEdge            Op = "edge"
	OpProperty        Op = "property"
	OpStats           Op = "stats"
)

// ErrProtocol is wrapped by errors caused by malformed frames or unknown
// operations.
var ErrProtocol = errors.New("remote: protocol error")

// Request is a client frame.
type Request struct {
	ID   string          `json:"id"`
	Op   Op              `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response is a server frame.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// ErrorKind classifies a wire error.
type ErrorKind string

const (
	KindReference ErrorKind = "reference"
	KindExecution ErrorKind = "execution"
	KindProtocol  ErrorKind = "protocol"
)

// Error is the error object of a Response.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	// Op is the store operation that failed, as reported by the store.
	Op string `json:"op,omitempty"`
	// Ref is set for reference errors, in graph.Element string form.
	Ref string `json:"ref,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote: %s: %s", e.Kind, e.Message)
}

// addArgs carries addVertex and addEdge arguments.
type addArgs struct {
	Label string          `json:"label"`
	Props graph.Props     `json:"props,omitempty"`
	From  graph.VertexRef `json:"from,omitempty"`
	To    graph.VertexRef `json:"to,omitempty"`
}

// refArgs carries a single vertex or edge ref.
type refArgs struct {
	Ref uint64 `json:"ref"`
}

type labelArgs struct {
	Label string `json:"label"`
}

type outEdgesArgs struct {
	Vertex graph.VertexRef `json:"vertex"`
	Label  string          `json:"label"`
}

type propertyArgs struct {
	Elem string `json:"elem"`
	Key  string `json:"key"`
}

type propertyResult struct {
	Value any  `json:"value"`
	OK    bool `json:"ok"`
}

// toWire converts a store error into its wire form.
func toWire(err error) *Error {
	var re *graph.ReferenceError
	if errors.As(err, &re) {
		we := &Error{Kind: KindReference, Message: err.Error(), Op: re.Op}
		if re.Ref != nil {
			we.Ref = re.Ref.String()
		}
		return we
	}
	if errors.Is(err, ErrProtocol) {
		return &Error{Kind: KindProtocol, Message: err.Error()}
	}
	var ee *graph.ExecutionError
	if errors.As(err, &ee) {
		return &Error{Kind: KindExecution, Message: ee.Err.Error(), Op: ee.Op}
	}
	return &Error{Kind: KindExecution, Message: err.Error()}
}

// fromWire rebuilds a graph error from its wire form. op is the client
// operation used when the server did not report one.
func fromWire(op Op, we *Error) error {
	name := we.Op
	if name == "" {
		name = string(op)
	}
	switch we.Kind {
	case KindReference:
		ref, err := graph.ParseElement(we.Ref)
		if err != nil {
			return graph.NewExecutionError(name, fmt.Errorf("%w: bad reference %q in error", ErrProtocol, we.Ref))
		}
		return &graph.ReferenceError{Op: name, Ref: ref}
	case KindProtocol:
		return graph.NewExecutionError(name, fmt.Errorf("%w: %s", ErrProtocol, we.Message))
	default:
		return graph.NewExecutionError(name, errors.New(we.Message))
	}
}
