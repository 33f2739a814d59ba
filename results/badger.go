package results

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/katalvlaran/kernelbp/core"
	"github.com/katalvlaran/kernelbp/gas"
	"github.com/katalvlaran/kernelbp/kernelbp"
)

const (
	betaPrefix = "beta/"
	runPrefix  = "run/"
)

// Config holds configuration for a BadgerStore.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM; used by tests and dry runs.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives BadgerDB's internal logs. Nil silences them.
	Logger *slog.Logger
}

// DefaultConfig returns a durable on-disk configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration with no disk I/O.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// BadgerStore keeps edge betas and run statistics in BadgerDB.
//
// Keys:
//   - beta/<source>/<target> → gob-encoded []float64
//   - run/<run id>           → gob-encoded gas.Stats
//
// Safe for concurrent use.
type BadgerStore struct {
	db *badger.DB
}

// Open opens (creating if needed) a BadgerStore.
func Open(cfg Config) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("results: path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("results: create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("results: open badger database: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func betaKey(k kernelbp.EdgeKey) []byte {
	return []byte(betaPrefix + strconv.FormatInt(int64(k.Source), 10) + "/" + strconv.FormatInt(int64(k.Target), 10))
}

func parseBetaKey(key []byte) (kernelbp.EdgeKey, error) {
	src, tgt, ok := strings.Cut(strings.TrimPrefix(string(key), betaPrefix), "/")
	if !ok {
		return kernelbp.EdgeKey{}, fmt.Errorf("results: key %q: %w", key, ErrMalformed)
	}
	s, err1 := strconv.ParseInt(src, 10, 64)
	t, err2 := strconv.ParseInt(tgt, 10, 64)
	if err1 != nil || err2 != nil {
		return kernelbp.EdgeKey{}, fmt.Errorf("results: key %q: %w", key, ErrMalformed)
	}

	return kernelbp.EdgeKey{Source: core.VertexID(s), Target: core.VertexID(t)}, nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("results: encode: %w", err)
	}

	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("results: decode: %w", err)
	}

	return nil
}

// PutBetas stores every beta in one batch, in key order.
func (s *BadgerStore) PutBetas(betas map[kernelbp.EdgeKey][]float64) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range kernelbp.SortedKeys(betas) {
		val, err := encode(betas[k])
		if err != nil {
			return err
		}
		if err = wb.Set(betaKey(k), val); err != nil {
			return fmt.Errorf("results: put %d->%d: %w", k.Source, k.Target, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("results: flush: %w", err)
	}

	return nil
}

// Beta returns the stored beta of edge k.
func (s *BadgerStore) Beta(k kernelbp.EdgeKey) ([]float64, error) {
	var beta []float64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(betaKey(k))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("results: %d->%d: %w", k.Source, k.Target, ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return decode(val, &beta) })
	})
	if err != nil {
		return nil, err
	}

	return beta, nil
}

// Betas returns every stored beta.
func (s *BadgerStore) Betas() (map[kernelbp.EdgeKey][]float64, error) {
	out := make(map[kernelbp.EdgeKey][]float64)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(betaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			k, err := parseBetaKey(item.Key())
			if err != nil {
				return err
			}
			var beta []float64
			if err = item.Value(func(val []byte) error { return decode(val, &beta) }); err != nil {
				return err
			}
			out[k] = beta
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// PutStats records the statistics of a run under its run id.
func (s *BadgerStore) PutStats(st gas.Stats) error {
	if st.RunID == "" {
		return fmt.Errorf("results: stats without run id: %w", ErrMalformed)
	}
	val, err := encode(st)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(runPrefix+st.RunID), val)
	})
}

// Stats returns the statistics recorded for runID.
func (s *BadgerStore) Stats(runID string) (gas.Stats, error) {
	var st gas.Stats
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runPrefix + runID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("results: run %s: %w", runID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return decode(val, &st) })
	})

	return st, err
}
