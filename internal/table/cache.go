package table

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Key identifies a cached table: a hash of the source identity plus the delimiter.
type Key struct {
	Source    uint64
	Delimiter rune
}

func (k Key) String() string {
	return strconv.FormatUint(k.Source, 16) + "/" + strconv.QuoteRune(k.Delimiter)
}

// Cache memoizes loaded tables. An entry is populated at most once per key, is
// never mutated afterwards, and callers always receive a clone.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*Table
	group   singleflight.Group
	loads   atomic.Int64
	log     *zap.Logger
}

// NewCache returns an empty cache. A nil logger disables logging.
func NewCache(log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{entries: map[Key]*Table{}, log: log}
}

// Loads reports how many times a source was actually parsed.
func (c *Cache) Loads() int64 { return c.loads.Load() }

// Len reports the number of cached tables.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Load returns the table at path, reading it only when the file's identity
// (absolute path, size, modification time) and options have not been seen.
func (c *Cache) Load(path string, opt Options) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SourceNotFoundError{Source: path, Err: err}
		}
		return nil, fmt.Errorf("stat source: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(path)
	}
	id := fmt.Sprintf("file\x00%s\x00%d\x00%d\x00%s", abs, info.Size(), info.ModTime().UnixNano(), optionsFingerprint(opt))
	key := Key{Source: xxh3.HashString(id), Delimiter: opt.Delimiter}
	return c.get(key, path, func() (*Table, error) { return Load(path, opt) })
}

// Read returns the table parsed from uploaded bytes, keyed by a hash of the content.
func (c *Cache) Read(name string, data []byte, opt Options) (*Table, error) {
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(name)
	}
	h := xxh3.New()
	_, _ = h.WriteString("bytes\x00" + optionsFingerprint(opt) + "\x00")
	_, _ = h.Write(data)
	key := Key{Source: h.Sum64(), Delimiter: opt.Delimiter}
	return c.get(key, name, func() (*Table, error) { return Read(bytes.NewReader(data), name, opt) })
}

func (c *Cache) get(key Key, source string, load func() (*Table, error)) (*Table, error) {
	c.mu.RLock()
	t, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.log.Debug("table cache hit", zap.String("source", source), zap.Stringer("key", key))
		return t.Clone(), nil
	}
	v, err, shared := c.group.Do(key.String(), func() (any, error) {
		c.mu.RLock()
		t, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return t, nil
		}
		c.loads.Add(1)
		t, err := load()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = t
		c.mu.Unlock()
		c.log.Debug("table loaded",
			zap.String("source", source),
			zap.Int("rows", t.NumRows()),
			zap.Int("columns", len(t.Columns)))
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug("table load shared", zap.String("source", source))
	}
	return v.(*Table).Clone(), nil
}

func optionsFingerprint(opt Options) string {
	return fmt.Sprintf("%q|%q|%q|%d|%t|%v", opt.DecimalSeparator, opt.ThousandsSeparator, opt.Sheet, opt.SheetIndex, opt.UnitNormalize, opt.UnitTargets)
}
