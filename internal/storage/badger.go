package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-pkgz/lgr"
)

// BadgerStore is the Store implementation backed by github.com/dgraph-io/badger/v4,
// using a zero-padded, lexicographically sortable sequence key pointing
// at the run's own metadata key, so ListRuns can iterate most-recent-first
// without scanning every key in the database.
type BadgerStore struct {
	db     *badger.DB
	logger lgr.L
}

// Open opens (creating if necessary) a Badger database at cfg.Path.
func Open(logger lgr.L, cfg Config) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.Logger = newBadgerLogger(logger)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger at %s: %w", cfg.Path, err)
	}

	return &BadgerStore{db: db, logger: logger}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func metaKey(runID string) []byte {
	return []byte("run:meta:" + runID)
}

// seqKey is monotonically increasing in lexicographic order for a
// monotonically increasing t, matching the zero-padded epoch-number
// discipline the teacher's badger client used for MerkleSnapshot keys.
func seqKey(t time.Time, runID string) []byte {
	return []byte(fmt.Sprintf("run:seq:%020d:%s", t.UnixNano(), runID))
}

func (s *BadgerStore) SaveRun(ctx context.Context, run RunRecord) error {
	run.UpdatedAt = time.Now()

	err := s.db.Update(func(txn *badger.Txn) error {
		if run.CreatedAt.IsZero() {
			run.CreatedAt = run.UpdatedAt
			if item, getErr := txn.Get(metaKey(run.RunID)); getErr == nil {
				var prev RunRecord
				if item.Value(func(val []byte) error { return json.Unmarshal(val, &prev) }) == nil && !prev.CreatedAt.IsZero() {
					run.CreatedAt = prev.CreatedAt
				}
			}
		}
		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		if err := txn.Set(metaKey(run.RunID), data); err != nil {
			return err
		}
		return txn.Set(seqKey(run.CreatedAt, run.RunID), []byte(run.RunID))
	})
	if err != nil {
		return fmt.Errorf("storage: save run %s: %w", run.RunID, err)
	}

	s.logger.Logf("INFO persisted run %s status=%s swaps=%d", run.RunID, run.Status, len(run.Swaps))
	return nil
}

func (s *BadgerStore) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	var run RunRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(runID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, fmt.Errorf("storage: run %s not found", runID)
		}
		return nil, fmt.Errorf("storage: get run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns returns up to limit runs, most recently created first. limit
// <= 0 means unbounded.
func (s *BadgerStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	var runIDs []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte("run:seq:")

		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration over a prefix in Badger starts from the
		// largest key with that prefix only when seeked there explicitly.
		seekKey := append(append([]byte{}, opts.Prefix...), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(opts.Prefix); it.Next() {
			if limit > 0 && len(runIDs) >= limit {
				break
			}
			key := string(it.Item().Key())
			idx := strings.LastIndex(key, ":")
			if idx < 0 {
				continue
			}
			runIDs = append(runIDs, key[idx+1:])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list runs: %w", err)
	}

	out := make([]RunRecord, 0, len(runIDs))
	for _, id := range runIDs {
		run, err := s.GetRun(ctx, id)
		if err != nil {
			s.logger.Logf("WARN list runs: skipping %s: %v", id, err)
			continue
		}
		out = append(out, *run)
	}
	return out, nil
}

var _ Store = (*BadgerStore)(nil)

// badgerLogger adapts lgr.L to badger's Logger interface, the same shim
// the teacher's badger client uses.
type badgerLogger struct {
	lgr lgr.L
}

func newBadgerLogger(l lgr.L) *badgerLogger {
	return &badgerLogger{lgr: l}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.lgr.Logf("ERROR "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.lgr.Logf("WARN "+format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.lgr.Logf("INFO "+format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.lgr.Logf("DEBUG "+format, args...)
}
