package graph

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strconv"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Key layout:
//
//	v:{vid}                     → msgpack vertexRecord
//	e:{eid}                     → msgpack edgeRecord
//	l:{hex(label)}:{vid}        → empty (label index)
//	o:{from}:{hex(label)}:{eid} → empty (out-edge index)
//	seq:v, seq:e                → badger sequences
//
// Ids are 16-digit hex, so lexicographic key order is insertion order.
// Labels are hex-encoded so they may contain the separator.

const idWidth = 16

var (
	seqVertexKey = []byte("seq:v")
	seqEdgeKey   = []byte("seq:e")
)

type vertexRecord struct {
	Label string `msgpack:"l"`
	Props Props  `msgpack:"p,omitempty"`
}

type edgeRecord struct {
	Label string    `msgpack:"l"`
	From  VertexRef `msgpack:"f"`
	To    VertexRef `msgpack:"t"`
	Props Props     `msgpack:"p,omitempty"`
}

// Badger is a persistent Store backed by BadgerDB v4. Each mutation runs in
// a single read-write transaction and each read in a read-only one.
type Badger struct {
	db   *badger.DB
	vseq *badger.Sequence
	eseq *badger.Sequence
}

var _ Store = (*Badger)(nil)

// BadgerOptions configures the Badger store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless InMemory.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// MemTableSize overrides badger's memtable size in bytes. A transaction
	// may hold about 15% of it. Zero keeps badger's default.
	MemTableSize int64

	// Logger receives badger warnings and errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewBadger opens a Badger-backed graph store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("graph: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logger: logger})
	if opts.MemTableSize > 0 {
		dbOpts = dbOpts.WithMemTableSize(opts.MemTableSize)
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, execErr("open", err)
	}
	vseq, err := db.GetSequence(seqVertexKey, 128)
	if err != nil {
		db.Close()
		return nil, execErr("open", err)
	}
	eseq, err := db.GetSequence(seqEdgeKey, 128)
	if err != nil {
		vseq.Release()
		db.Close()
		return nil, execErr("open", err)
	}
	return &Badger{db: db, vseq: vseq, eseq: eseq}, nil
}

// --- key helpers ---

func formatID(id uint64) string {
	s := strconv.FormatUint(id, 16)
	if len(s) < idWidth {
		s = "0000000000000000"[:idWidth-len(s)] + s
	}
	return s
}

func parseID(b []byte) (uint64, error) {
	if len(b) < idWidth {
		return 0, fmt.Errorf("malformed key %q", b)
	}
	return strconv.ParseUint(string(b[len(b)-idWidth:]), 16, 64)
}

func vertexKey(ref VertexRef) []byte { return []byte("v:" + formatID(uint64(ref))) }
func edgeKey(ref EdgeRef) []byte     { return []byte("e:" + formatID(uint64(ref))) }

func labelPrefix(label string) []byte {
	return []byte("l:" + hex.EncodeToString([]byte(label)) + ":")
}

func labelKey(label string, ref VertexRef) []byte {
	return append(labelPrefix(label), formatID(uint64(ref))...)
}

func outPrefix(from VertexRef, label string) []byte {
	return []byte("o:" + formatID(uint64(from)) + ":" + hex.EncodeToString([]byte(label)) + ":")
}

func outKey(from VertexRef, label string, ref EdgeRef) []byte {
	return append(outPrefix(from, label), formatID(uint64(ref))...)
}

// --- record helpers ---

func encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// decode unmarshals a record. Loose interface decoding widens property
// numbers to int64, uint64 or float64.
func decode(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(v)
}

func getVertex(txn *badger.Txn, ref VertexRef) (*vertexRecord, error) {
	item, err := txn.Get(vertexKey(ref))
	if err != nil {
		return nil, err
	}
	var rec vertexRecord
	if err := item.Value(func(val []byte) error { return decode(val, &rec) }); err != nil {
		return nil, err
	}
	return &rec, nil
}

func getEdge(txn *badger.Txn, ref EdgeRef) (*edgeRecord, error) {
	item, err := txn.Get(edgeKey(ref))
	if err != nil {
		return nil, err
	}
	var rec edgeRecord
	if err := item.Value(func(val []byte) error { return decode(val, &rec) }); err != nil {
		return nil, err
	}
	return &rec, nil
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// getLiveEdge returns the edge only if both endpoints still exist.
func getLiveEdge(txn *badger.Txn, ref EdgeRef) (*edgeRecord, bool, error) {
	rec, err := getEdge(txn, ref)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	for _, v := range []VertexRef{rec.From, rec.To} {
		ok, err := exists(txn, vertexKey(v))
		if err != nil || !ok {
			return nil, false, err
		}
	}
	return rec, true, nil
}

// --- mutations ---

func (b *Badger) AddVertex(_ context.Context, label string, props Props) (VertexRef, error) {
	n, err := b.vseq.Next()
	if err != nil {
		return 0, execErr("AddVertex", err)
	}
	ref := VertexRef(n + 1)
	data, err := encode(vertexRecord{Label: label, Props: props})
	if err != nil {
		return 0, execErr("AddVertex", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(vertexKey(ref), data); err != nil {
			return err
		}
		return txn.Set(labelKey(label, ref), nil)
	})
	if err != nil {
		return 0, execErr("AddVertex", err)
	}
	return ref, nil
}

func (b *Badger) AddEdge(_ context.Context, label string, from, to VertexRef, props Props) (EdgeRef, error) {
	data, err := encode(edgeRecord{Label: label, From: from, To: to, Props: props})
	if err != nil {
		return 0, execErr("AddEdge", err)
	}
	var ref EdgeRef
	err = b.db.Update(func(txn *badger.Txn) error {
		for _, v := range []VertexRef{from, to} {
			ok, err := exists(txn, vertexKey(v))
			if err != nil {
				return err
			}
			if !ok {
				return &ReferenceError{Op: "AddEdge", Ref: v}
			}
		}
		n, err := b.eseq.Next()
		if err != nil {
			return err
		}
		ref = EdgeRef(n + 1)
		if err := txn.Set(edgeKey(ref), data); err != nil {
			return err
		}
		return txn.Set(outKey(from, label, ref), nil)
	})
	if err != nil {
		return 0, execErr("AddEdge", err)
	}
	return ref, nil
}

func (b *Badger) DropVertex(_ context.Context, ref VertexRef) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		rec, err := getVertex(txn, ref)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return &ReferenceError{Op: "DropVertex", Ref: ref}
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(vertexKey(ref)); err != nil {
			return err
		}
		return txn.Delete(labelKey(rec.Label, ref))
	})
	return execErr("DropVertex", err)
}

func (b *Badger) DropEdge(_ context.Context, ref EdgeRef) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		rec, err := getEdge(txn, ref)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return &ReferenceError{Op: "DropEdge", Ref: ref}
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(edgeKey(ref)); err != nil {
			return err
		}
		return txn.Delete(outKey(rec.From, rec.Label, ref))
	})
	return execErr("DropEdge", err)
}

// DropAllEdges removes every edge with badger's DropPrefix, which blocks
// writes until it is done. Readers never see a partial drop, and the drop
// does not run into the per-transaction size limit. Writes issued while it
// runs fail with badger.ErrBlockedWrites.
func (b *Badger) DropAllEdges(_ context.Context) error {
	return execErr("DropAllEdges", b.db.DropPrefix([]byte("e:"), []byte("o:")))
}

// DropAllVertices removes every vertex the same way as DropAllEdges.
func (b *Badger) DropAllVertices(_ context.Context) error {
	return execErr("DropAllVertices", b.db.DropPrefix([]byte("v:"), []byte("l:")))
}

// --- reads ---

func (b *Badger) Vertex(_ context.Context, ref VertexRef) (Vertex, error) {
	var v Vertex
	err := b.db.View(func(txn *badger.Txn) error {
		rec, err := getVertex(txn, ref)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return &ReferenceError{Op: "Vertex", Ref: ref}
		}
		if err != nil {
			return err
		}
		v = Vertex{ID: ref, Label: rec.Label, Props: rec.Props}
		return nil
	})
	return v, execErr("Vertex", err)
}

func (b *Badger) Edge(_ context.Context, ref EdgeRef) (Edge, error) {
	var e Edge
	err := b.db.View(func(txn *badger.Txn) error {
		rec, ok, err := getLiveEdge(txn, ref)
		if err != nil {
			return err
		}
		if !ok {
			return &ReferenceError{Op: "Edge", Ref: ref}
		}
		e = Edge{ID: ref, Label: rec.Label, From: rec.From, To: rec.To, Props: rec.Props}
		return nil
	})
	return e, execErr("Edge", err)
}

func (b *Badger) Property(ctx context.Context, elem Element, key string) (any, bool, error) {
	var props Props
	switch r := elem.(type) {
	case VertexRef:
		v, err := b.Vertex(ctx, r)
		if err != nil {
			return nil, false, err
		}
		props = v.Props
	case EdgeRef:
		e, err := b.Edge(ctx, r)
		if err != nil {
			return nil, false, err
		}
		props = e.Props
	}
	val, ok := props[key]
	return val, ok, nil
}

func (b *Badger) VerticesByLabel(_ context.Context, label string) iter.Seq2[Vertex, error] {
	prefix := labelPrefix(label)
	return func(yield func(Vertex, error) bool) {
		err := b.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				id, err := parseID(it.Item().Key())
				if err != nil {
					return err
				}
				ref := VertexRef(id)
				rec, err := getVertex(txn, ref)
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if !yield(Vertex{ID: ref, Label: rec.Label, Props: rec.Props}, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(Vertex{}, execErr("VerticesByLabel", err))
		}
	}
}

func (b *Badger) OutEdges(_ context.Context, vertex VertexRef, edgeLabel string) iter.Seq2[Edge, error] {
	prefix := outPrefix(vertex, edgeLabel)
	return func(yield func(Edge, error) bool) {
		err := b.db.View(func(txn *badger.Txn) error {
			ok, err := exists(txn, vertexKey(vertex))
			if err != nil {
				return err
			}
			if !ok {
				return &ReferenceError{Op: "OutEdges", Ref: vertex}
			}

			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				id, err := parseID(it.Item().Key())
				if err != nil {
					return err
				}
				ref := EdgeRef(id)
				rec, live, err := getLiveEdge(txn, ref)
				if err != nil {
					return err
				}
				if !live {
					continue
				}
				e := Edge{ID: ref, Label: rec.Label, From: rec.From, To: rec.To, Props: rec.Props}
				if !yield(e, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(Edge{}, execErr("OutEdges", err))
		}
	}
}

func (b *Badger) Stats(_ context.Context) (Stats, error) {
	var st Stats
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		vp := []byte("v:")
		opts.Prefix = vp
		it := txn.NewIterator(opts)
		for it.Seek(vp); it.ValidForPrefix(vp); it.Next() {
			st.Vertices++
		}
		it.Close()

		ep := []byte("e:")
		opts.Prefix = ep
		it = txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(ep); it.ValidForPrefix(ep); it.Next() {
			id, err := parseID(it.Item().Key())
			if err != nil {
				return err
			}
			_, live, err := getLiveEdge(txn, EdgeRef(id))
			if err != nil {
				return err
			}
			if live {
				st.Edges++
			}
		}
		return nil
	})
	return st, execErr("Stats", err)
}

func (b *Badger) Close() error {
	return errors.Join(b.vseq.Release(), b.eseq.Release(), b.db.Close())
}

// badgerLogger forwards badger warnings and errors to slog and drops
// info and debug chatter.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(f, v...), "component", "badger")
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(f, v...), "component", "badger")
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
