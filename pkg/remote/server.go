package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haivivi/orgchart/pkg/graph"
)

// ServerOptions configures a Server.
type ServerOptions struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Registry receives the server metrics. A private registry is created
	// when nil.
	Registry *prometheus.Registry
}

// Server exposes a graph.Store on Path. Each connection is served by one
// goroutine that handles its requests in order.
type Server struct {
	store    graph.Store
	logger   *slog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewServer creates a Server for store. The server does not own the store.
func NewServer(store graph.Store, opts ServerOptions) *Server {
	s := &Server{
		store:  store,
		logger: opts.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		registry: opts.Registry,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	s.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgchart_remote_requests_total",
			Help: "Total number of graph requests handled, by operation and outcome",
		},
		[]string{"op", "status"},
	)
	s.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orgchart_remote_request_duration_seconds",
			Help:    "Duration of graph requests in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"op"},
	)
	s.registry.MustRegister(s.requests, s.duration)

	s.mux = http.NewServeMux()
	s.mux.HandleFunc(Path, s.handleWS)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Serve accepts connections on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("graph server listening", "addr", ln.Addr().String(), "path", Path)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Stats(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok\n"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// Unblock ReadMessage when the server shuts down.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	log := s.logger.With("remote", r.RemoteAddr)
	log.Debug("client connected")
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				log.Debug("read failed", "error", err)
			}
			log.Debug("client disconnected")
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		resp := s.handle(ctx, data)
		if err := conn.WriteJSON(resp); err != nil {
			log.Debug("write failed", "error", err)
			return
		}
	}
}

// handle decodes one request frame, runs it and builds the response.
func (s *Server) handle(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.requests.WithLabelValues("", string(KindProtocol)).Inc()
		return &Response{Error: toWire(fmt.Errorf("%w: %v", ErrProtocol, err))}
	}

	start := time.Now()
	result, err := s.dispatch(ctx, req)
	s.duration.WithLabelValues(string(req.Op)).Observe(time.Since(start).Seconds())

	resp := &Response{ID: req.ID}
	if err == nil {
		resp.Result, err = json.Marshal(result)
		if err != nil {
			err = graph.NewExecutionError(string(req.Op), err)
		}
	}
	if err != nil {
		resp.Result = nil
		resp.Error = toWire(err)
		s.requests.WithLabelValues(string(req.Op), string(resp.Error.Kind)).Inc()
		s.logger.Debug("request failed", "op", req.Op, "error", err)
		return resp
	}
	s.requests.WithLabelValues(string(req.Op), "ok").Inc()
	return resp
}

func decodeArgs(req Request, v any) error {
	if len(req.Args) == 0 {
		return fmt.Errorf("%w: %s: missing args", ErrProtocol, req.Op)
	}
	if err := json.Unmarshal(req.Args, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProtocol, req.Op, err)
	}
	return nil
}

func (s *Server) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Op {
	case OpAddVertex:
		var a addArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		return s.store.AddVertex(ctx, a.Label, a.Props)

	case OpAddEdge:
		var a addArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		return s.store.AddEdge(ctx, a.Label, a.From, a.To, a.Props)

	case OpDropAllEdges:
		return nil, s.store.DropAllEdges(ctx)

	case OpDropAllVertices:
		return nil, s.store.DropAllVertices(ctx)

	case OpDropVertex:
		var a refArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		return nil, s.store.DropVertex(ctx, graph.VertexRef(a.Ref))

	case OpDropEdge:
		var a refArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		return nil, s.store.DropEdge(ctx, graph.EdgeRef(a.Ref))

	case OpVertex:
		var a refArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		return s.store.Vertex(ctx, graph.VertexRef(a.Ref))

	case OpEdge:
		var a refArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		return s.store.Edge(ctx, graph.EdgeRef(a.Ref))

	case OpProperty:
		var a propertyArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		elem, err := graph.ParseElement(a.Elem)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		v, ok, err := s.store.Property(ctx, elem, a.Key)
		if err != nil {
			return nil, err
		}
		return propertyResult{Value: v, OK: ok}, nil

	case OpVerticesByLabel:
		var a labelArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		vs := []graph.Vertex{}
		for v, err := range s.store.VerticesByLabel(ctx, a.Label) {
			if err != nil {
				return nil, err
			}
			vs = append(vs, v)
		}
		return vs, nil

	case OpOutEdges:
		var a outEdgesArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		es := []graph.Edge{}
		for e, err := range s.store.OutEdges(ctx, a.Vertex, a.Label) {
			if err != nil {
				return nil, err
			}
			es = append(es, e)
		}
		return es, nil

	case OpStats:
		return s.store.Stats(ctx)

	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrProtocol, req.Op)
	}
}
