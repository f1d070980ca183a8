// Package library stores named formulas in a local bbolt database.
//
// Each entry keeps the source as written, its parsed tree in the astfmt
// binary encoding and the canonical digest, so a formula saved once can be
// evaluated later without re-parsing and compared against edited copies.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/aledsdavies/formula/core/ast"
	"github.com/aledsdavies/formula/core/astfmt"
	"github.com/aledsdavies/formula/runtime/parser"
)

var bucketFormulas = []byte("formulas")

// ErrNotFound is returned when no formula has the requested name
var ErrNotFound = errors.New("formula not found")

// ErrInvalidName is returned for names that are empty or contain spaces
var ErrInvalidName = errors.New("invalid formula name")

// Record is one stored formula
type Record struct {
	Name    string    `cbor:"1,keyasint"`
	Source  string    `cbor:"2,keyasint"`
	Digest  string    `cbor:"3,keyasint"`
	Tree    []byte    `cbor:"4,keyasint"` // astfmt.Marshal output
	SavedAt time.Time `cbor:"5,keyasint"`
}

// Root decodes the stored tree
func (r *Record) Root() (ast.Node, error) {
	node, err := astfmt.Unmarshal(r.Tree)
	if err != nil {
		return nil, fmt.Errorf("formula %q: %w", r.Name, err)
	}
	return node, nil
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger for store operations
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides time.Now for SavedAt
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is a formula library backed by a bbolt file
type Store struct {
	path   string
	db     *bolt.DB
	logger *slog.Logger
	now    func() time.Time
}

// DefaultPath returns the library location used when FORMULA_LIBRARY is unset
func DefaultPath() string {
	if p := os.Getenv("FORMULA_LIBRARY"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "formula", "library.db")
}

// Open opens or creates the library at path
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   path,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("error creating library directory: %w", err)
	}
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("error opening library %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketFormulas)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error initialising library %s: %w", path, err)
	}

	s.db = db
	return s, nil
}

// Close releases the database file lock
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// Save parses source and stores it under name, replacing any previous
// entry. Formulas that fail to parse are not stored.
func (s *Store) Save(ctx context.Context, name, source string) (*Record, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := parser.ParseString(source)
	if err != nil {
		return nil, err
	}
	tree, err := astfmt.Marshal(root)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Name:    name,
		Source:  source,
		Digest:  astfmt.DigestHex(root),
		Tree:    tree,
		SavedAt: s.now().UTC(),
	}
	encMode, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	data, err := encMode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFormulas).Put([]byte(name), data)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("[LIBRARY] save", "name", name, "digest", rec.Digest)
	return rec, nil
}

// Get returns the formula stored under name
func (s *Store) Get(ctx context.Context, name string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketFormulas).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		r, err := decode(data)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns every stored formula ordered by name
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFormulas).ForEach(func(_, data []byte) error {
			rec, err := decode(data)
			if err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the formula stored under name
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFormulas)
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return b.Delete([]byte(name))
	})
	if err == nil {
		s.logger.Debug("[LIBRARY] delete", "name", name)
	}
	return err
}

func decode(data []byte) (*Record, error) {
	var rec Record
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("corrupt library entry: %w", err)
	}
	return &rec, nil
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidName, name)
	}
	return nil
}
