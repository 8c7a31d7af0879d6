package remote

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/haivivi/orgchart/pkg/graph"
)

// ErrClosed is returned for calls on a closed or broken Client.
var ErrClosed = errors.New("remote: client closed")

// Config configures a Client.
type Config struct {
	// URL is the websocket endpoint, e.g. "ws://localhost:8182/graph".
	URL string

	// TLSConfig is used for wss:// URLs. Nil uses the system defaults.
	TLSConfig *tls.Config

	// HandshakeTimeout defaults to 10s.
	HandshakeTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a graph.Store backed by a remote Server. Calls are serialized
// over a single connection. Transport failures are returned as
// *graph.ExecutionError and are never retried; after one the client is
// unusable and must be redialed.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	mu     sync.Mutex
	broken error
}

var _ graph.Store = (*Client)(nil)

// Dial connects to a Server.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("remote: URL is required")
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		TLSClientConfig:  cfg.TLSConfig,
	}
	conn, resp, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("remote: failed to connect to %s: %w (status %d)", cfg.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("remote: failed to connect to %s: %w", cfg.URL, err)
	}
	logger.Debug("connected to graph server", "url", cfg.URL)
	return &Client{conn: conn, logger: logger}, nil
}

// call sends one request and waits for the response with the same id.
// Responses to other ids are dropped.
func (c *Client) call(ctx context.Context, op Op, args, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken != nil {
		return graph.NewExecutionError(string(op), c.broken)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := Request{ID: uuid.NewString(), Op: op}
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return graph.NewExecutionError(string(op), err)
		}
		req.Args = data
	}

	// A canceled context interrupts the blocked read. The connection is
	// then in an unknown state and is marked broken.
	deadline, _ := ctx.Deadline()
	c.conn.SetWriteDeadline(deadline)
	c.conn.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { c.conn.SetReadDeadline(time.Now()) })
	defer stop()

	if err := c.conn.WriteJSON(req); err != nil {
		return c.fail(ctx, op, err)
	}
	for {
		var resp Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			return c.fail(ctx, op, err)
		}
		if resp.ID != req.ID {
			c.logger.Debug("dropping unexpected response", "id", resp.ID, "want", req.ID)
			continue
		}
		if resp.Error != nil {
			return fromWire(op, resp.Error)
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return graph.NewExecutionError(string(op), fmt.Errorf("%w: %v", ErrProtocol, err))
		}
		return nil
	}
}

// fail marks the connection broken. Caller must hold mu.
func (c *Client) fail(ctx context.Context, op Op, err error) error {
	c.broken = fmt.Errorf("%w: %v", ErrClosed, err)
	c.conn.Close()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return graph.NewExecutionError(string(op), err)
}

func (c *Client) AddVertex(ctx context.Context, label string, props graph.Props) (graph.VertexRef, error) {
	var ref graph.VertexRef
	err := c.call(ctx, OpAddVertex, addArgs{Label: label, Props: props}, &ref)
	return ref, err
}

func (c *Client) AddEdge(ctx context.Context, label string, from, to graph.VertexRef, props graph.Props) (graph.EdgeRef, error) {
	var ref graph.EdgeRef
	err := c.call(ctx, OpAddEdge, addArgs{Label: label, Props: props, From: from, To: to}, &ref)
	return ref, err
}

func (c *Client) DropVertex(ctx context.Context, ref graph.VertexRef) error {
	return c.call(ctx, OpDropVertex, refArgs{Ref: uint64(ref)}, nil)
}

func (c *Client) DropEdge(ctx context.Context, ref graph.EdgeRef) error {
	return c.call(ctx, OpDropEdge, refArgs{Ref: uint64(ref)}, nil)
}

func (c *Client) DropAllEdges(ctx context.Context) error {
	return c.call(ctx, OpDropAllEdges, nil, nil)
}

func (c *Client) DropAllVertices(ctx context.Context) error {
	return c.call(ctx, OpDropAllVertices, nil, nil)
}

func (c *Client) Vertex(ctx context.Context, ref graph.VertexRef) (graph.Vertex, error) {
	var v graph.Vertex
	err := c.call(ctx, OpVertex, refArgs{Ref: uint64(ref)}, &v)
	return v, err
}

func (c *Client) Edge(ctx context.Context, ref graph.EdgeRef) (graph.Edge, error) {
	var e graph.Edge
	err := c.call(ctx, OpEdge, refArgs{Ref: uint64(ref)}, &e)
	return e, err
}

// Property returns the value as decoded from JSON: numbers are float64.
func (c *Client) Property(ctx context.Context, elem graph.Element, key string) (any, bool, error) {
	if elem == nil {
		return nil, false, graph.NewExecutionError(string(OpProperty), errors.New("nil element"))
	}
	var res propertyResult
	if err := c.call(ctx, OpProperty, propertyArgs{Elem: elem.String(), Key: key}, &res); err != nil {
		return nil, false, err
	}
	return res.Value, res.OK, nil
}

// VerticesByLabel fetches the whole result on each range.
func (c *Client) VerticesByLabel(ctx context.Context, label string) iter.Seq2[graph.Vertex, error] {
	return func(yield func(graph.Vertex, error) bool) {
		var vs []graph.Vertex
		if err := c.call(ctx, OpVerticesByLabel, labelArgs{Label: label}, &vs); err != nil {
			yield(graph.Vertex{}, err)
			return
		}
		for _, v := range vs {
			if !yield(v, nil) {
				return
			}
		}
	}
}

// OutEdges fetches the whole result on each range.
func (c *Client) OutEdges(ctx context.Context, vertex graph.VertexRef, edgeLabel string) iter.Seq2[graph.Edge, error] {
	return func(yield func(graph.Edge, error) bool) {
		var es []graph.Edge
		if err := c.call(ctx, OpOutEdges, outEdgesArgs{Vertex: vertex, Label: edgeLabel}, &es); err != nil {
			yield(graph.Edge{}, err)
			return
		}
		for _, e := range es {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (c *Client) Stats(ctx context.Context) (graph.Stats, error) {
	var st graph.Stats
	err := c.call(ctx, OpStats, nil, &st)
	return st, err
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken != nil {
		return nil
	}
	c.broken = ErrClosed
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
