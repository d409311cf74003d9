package datasource

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/velum-io/tabular/pkg/errors"
	"github.com/velum-io/tabular/pkg/logger"
	"github.com/velum-io/tabular/pkg/reader"
)

// Entry pairs a reader with its registered default parameters.
type Entry struct {
	Reader   reader.Func
	Defaults reader.Params
}

// Registry maps format keys to readers. Keys are case-insensitive and
// whitespace-trimmed. Registries are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]Entry
	logger  *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		formats: make(map[string]Entry),
		logger:  logger.Get().With(zap.String("component", "format_registry")),
	}
}

// Register adds or replaces a format handler. Re-registering an existing
// key logs a warning; the new reader wins.
func (r *Registry) Register(key string, fn reader.Func, defaults reader.Params) {
	key = cleanFormat(key)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formats[key]; exists {
		r.logger.Warn("format already registered, overwriting", zap.String("format", key))
	}
	if defaults == nil {
		defaults = reader.Params{}
	}
	r.formats[key] = Entry{Reader: fn, Defaults: defaults}
}

// Lookup resolves a format key. Unknown formats are an error naming the
// requested format and the supported set.
func (r *Registry) Lookup(format string) (Entry, error) {
	key := cleanFormat(format)

	r.mu.RLock()
	entry, ok := r.formats[key]
	r.mu.RUnlock()

	if !ok {
		return Entry{}, errors.Newf(errors.ErrorTypeFormat,
			"format %q not supported; supported formats are: %s",
			format, strings.Join(r.Formats(), ", "))
	}
	return entry, nil
}

// Formats returns the registered format keys, sorted.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.formats))
	for k := range r.formats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cleanFormat(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// defaultRegistry carries the built-in formats. DataSource uses it unless
// WithRegistry injects another one.
var defaultRegistry = newBuiltinRegistry()

func newBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register("csv", reader.FromCSV, reader.Params{"delimiter": ","})
	r.Register("xls", reader.FromExcel, nil)
	r.Register("xlsx", reader.FromExcel, nil)
	r.Register("json", reader.FromJSON, reader.Params{"flatten": true})
	r.Register("jsonl", reader.FromJSON, reader.Params{"flatten": true})
	r.Register("json-l", reader.FromJSON, reader.Params{"flatten": true})
	r.Register("parquet", reader.FromParquet, nil)
	r.Register("elasticsearch", reader.FromElasticsearch, nil)
	return r
}

// Register adds a format handler to the default registry.
func Register(key string, fn reader.Func, defaults reader.Params) {
	defaultRegistry.Register(key, fn, defaults)
}

// Formats lists the default registry's format keys.
func Formats() []string {
	return defaultRegistry.Formats()
}
