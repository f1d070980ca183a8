// Package contextdata loads the record a formula is evaluated against.
//
// Context files are JSON or YAML. Whatever the source, the loaded value is
// normalized to the shapes the interpreter understands: map[string]any for
// records, []any for lists, float64 for numbers, and string, bool or nil
// for the rest.
package contextdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format selects the decoder for a context document
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DefaultMaxBytes caps the size of a context document
const DefaultMaxBytes = 16 << 20

// ErrTooLarge is returned when a document exceeds the configured size
var ErrTooLarge = errors.New("context document too large")

// ParseFormat maps a flag value to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatAuto, fmt.Errorf("unknown context format %q (expected json or yaml)", s)
	}
}

// Option configures a Loader
type Option func(*Loader)

// WithFormat forces a decoder instead of guessing from the file name
func WithFormat(f Format) Option {
	return func(l *Loader) { l.format = f }
}

// WithStdin replaces the reader used for the path "-"
func WithStdin(r io.Reader) Option {
	return func(l *Loader) { l.stdin = r }
}

// WithMaxBytes overrides DefaultMaxBytes
func WithMaxBytes(n int64) Option {
	return func(l *Loader) { l.maxBytes = n }
}

// WithSchema validates every loaded document
func WithSchema(s *Schema) Option {
	return func(l *Loader) { l.schema = s }
}

// WithLogger sets the logger for load diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// Loader reads context documents from files or stdin
type Loader struct {
	format   Format
	stdin    io.Reader
	maxBytes int64
	schema   *Schema
	logger   *slog.Logger
}

// NewLoader creates a loader with the given options
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		stdin:    os.Stdin,
		maxBytes: DefaultMaxBytes,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the document at path. The path "-" reads stdin; an empty path
// yields an empty record.
func (l *Loader) Load(path string) (any, error) {
	if path == "" {
		return map[string]any{}, nil
	}

	var r io.Reader
	if path == "-" {
		r = l.stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("error opening context %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("error reading context %s: %w", path, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, path, l.maxBytes)
	}

	format := l.format
	if format == FormatAuto {
		format = detect(path, data)
	}
	l.logger.Debug("[CONTEXT] load", "path", path, "format", string(format), "bytes", len(data))

	value, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if l.schema != nil {
		if err := l.schema.Validate(value); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return value, nil
}

// Load reads a document with a default loader
func Load(path string, opts ...Option) (any, error) {
	return NewLoader(opts...).Load(path)
}

// Decode parses data in the given format and normalizes the result
func Decode(data []byte, format Format) (any, error) {
	var raw any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	case FormatYAML, FormatAuto:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported context format %q", format)
	}
	return Normalize(raw)
}

// detect picks a decoder from the file extension, falling back to the
// first significant byte. YAML is a superset of JSON so it is the default.
func detect(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// Normalize converts decoded YAML or Go values to the interpreter's shapes
func Normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, float64:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case float32:
		return float64(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return f, nil
	case time.Time:
		return formatTime(val), nil
	case []byte:
		return string(val), nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			n, err := Normalize(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			key := fmt.Sprint(k)
			n, err := Normalize(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out[key] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			n, err := Normalize(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported context value of type %T", v)
	}
}

// formatTime keeps YAML timestamps readable by formatDate
func formatTime(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339Nano)
}
