package methodname

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/derive/internal/entity"
)

// Cache memoizes Parse results for one entity, keyed by the exact method
// name. Failures are cached as well, so a permanently malformed name is
// parsed once.
//
// Entries are never evicted: the set of names is bounded by the methods an
// application declares.
//
// Thread-safety: concurrent first use of the same name is collapsed into a
// single parse; the result is published with LoadOrStore, so every caller
// sees either no entry or a complete one.
type Cache struct {
	desc    *entity.Descriptor
	entries sync.Map // string -> *cacheEntry
	group   singleflight.Group
	parses  atomic.Int64
}

type cacheEntry struct {
	method *Method
	err    error
}

// NewCache creates an empty cache for d.
func NewCache(d *entity.Descriptor) *Cache {
	return &Cache{desc: d}
}

// Descriptor returns the entity this cache parses against.
func (c *Cache) Descriptor() *entity.Descriptor {
	return c.desc
}

// Parse returns the cached parse of name, parsing it on first use.
func (c *Cache) Parse(name string) (*Method, error) {
	if v, ok := c.entries.Load(name); ok {
		e := v.(*cacheEntry)
		return e.method, e.err
	}

	v, _, _ := c.group.Do(name, func() (any, error) {
		if v, ok := c.entries.Load(name); ok {
			return v, nil
		}
		m, err := Parse(name, c.desc)
		c.parses.Add(1)
		actual, _ := c.entries.LoadOrStore(name, &cacheEntry{method: m, err: err})
		return actual, nil
	})

	e := v.(*cacheEntry)
	return e.method, e.err
}

// Len returns the number of cached names, successes and failures.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Parses returns how many times the underlying parser ran.
func (c *Cache) Parses() int64 {
	return c.parses.Load()
}
