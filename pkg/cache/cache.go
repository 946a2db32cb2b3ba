// Package cache keeps model documents built from sources, so that
// unchanged inputs are not parsed again. Snapshots are stored as msgpack
// files under a directory and kept in a small in-memory LRU.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-decls/pkg/model"
)

// SnapshotVersion is bumped whenever the Document layout changes; older
// snapshots are treated as misses.
const SnapshotVersion = 1

const snapshotExt = ".msgpack"

// ErrMiss is returned when no usable snapshot exists for a key.
var ErrMiss = errors.New("cache miss")

// Snapshot is one cached document together with the hash of the sources
// it was built from.
type Snapshot struct {
	Version    int            `msgpack:"version"`
	Key        string         `msgpack:"key"`
	SourceHash string         `msgpack:"source_hash"`
	CreatedAt  int64          `msgpack:"created_at"`
	Document   model.Document `msgpack:"document"`
}

// Stats reports cache activity since the Store was opened.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Store is a directory of snapshots. It is safe for concurrent use.
type Store struct {
	dir    string
	mem    *lru
	hits   atomic.Int64
	misses atomic.Int64
}

// DefaultMemEntries bounds the in-memory LRU when Open is given zero.
const DefaultMemEntries = 16

// Open returns a store rooted at dir, creating the directory if needed.
func Open(dir string, memEntries int) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if memEntries <= 0 {
		memEntries = DefaultMemEntries
	}
	return &Store{dir: dir, mem: newLRU(memEntries)}, nil
}

// Dir returns the directory holding the snapshot files.
func (s *Store) Dir() string { return s.dir }

// Key derives a cache key from a set of input paths. The order of paths
// does not matter.
func Key(paths ...string) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\x00")))
	return hex.EncodeToString(sum[:16])
}

// HashFiles returns a sha256 over the names and contents of the files, in
// the given order.
func HashFiles(paths ...string) (string, error) {
	h := sha256.New()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return "", fmt.Errorf("hash %s: %w", p, err)
		}
		io.WriteString(h, p)
		h.Write([]byte{0})
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("hash %s: %w", p, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+snapshotExt)
}

// Save stores doc under key, tagged with the hash of its sources.
func (s *Store) Save(key, sourceHash string, doc *model.Document) error {
	snap := &Snapshot{
		Version:    SnapshotVersion,
		Key:        key,
		SourceHash: sourceHash,
		CreatedAt:  time.Now().Unix(),
		Document:   *doc,
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := msgpack.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.mem.set(key, snap)
	return nil
}

// Load returns the document stored under key. It returns ErrMiss when the
// snapshot is absent, was written by another version, or was built from
// sources with a different hash.
func (s *Store) Load(key, sourceHash string) (*model.Document, error) {
	snap, ok := s.mem.get(key)
	if !ok {
		var err error
		snap, err = s.readFile(key)
		if err != nil {
			if errors.Is(err, ErrMiss) {
				s.misses.Add(1)
			}
			return nil, err
		}
		s.mem.set(key, snap)
	}

	if snap.Version != SnapshotVersion || snap.SourceHash != sourceHash {
		s.misses.Add(1)
		return nil, ErrMiss
	}
	s.hits.Add(1)
	doc := snap.Document
	return &doc, nil
}

func (s *Store) readFile(key string) (*Snapshot, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var snap Snapshot
	if err := msgpack.NewDecoder(f).Decode(&snap); err != nil {
		// A truncated or foreign file is rebuilt rather than reported.
		return nil, ErrMiss
	}
	return &snap, nil
}

// Delete removes the snapshot stored under key, if any.
func (s *Store) Delete(key string) error {
	s.mem.remove(key)
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}

// Clear removes every snapshot.
func (s *Store) Clear() error {
	s.mem.clear()
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+snapshotExt))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove snapshot: %w", err)
		}
	}
	return nil
}

// Stats returns the number of snapshots on disk and the hit and miss
// counters.
func (s *Store) Stats() Stats {
	matches, _ := filepath.Glob(filepath.Join(s.dir, "*"+snapshotExt))
	return Stats{Entries: len(matches), Hits: s.hits.Load(), Misses: s.misses.Load()}
}
