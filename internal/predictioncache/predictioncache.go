// Package predictioncache memoizes Matcher.Predict results keyed by a
// hash of (context, action, plan). It is grounded on the teacher's
// pkg/cache query plan cache: the same container/list LRU plus
// hash/fnv key derivation, with an optional durable tier backed by
// BadgerDB (github.com/dgraph-io/badger/v4) so a restarted process can
// skip re-deriving predictions it has already served.
package predictioncache

import (
	"container/list"
	"encoding/json"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key identifies a cacheable prediction request.
type Key struct {
	Environment     string
	Stakes          string
	PreviousActions []string
	Action          string
	TopK            int
	MinQuality      int
}

// Hash returns a stable 64-bit digest of k, suitable as a map/Badger
// key. Field order is fixed so identical Keys always hash identically.
func (k Key) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(k.Environment))
	h.Write([]byte{0})
	h.Write([]byte(k.Stakes))
	h.Write([]byte{0})
	for _, a := range k.PreviousActions {
		h.Write([]byte(a))
		h.Write([]byte{0})
	}
	h.Write([]byte(k.Action))
	h.Write([]byte{0, byte(k.TopK), byte(k.MinQuality)})
	return h.Sum64()
}

type entry struct {
	key       uint64
	value     []byte
	expiresAt time.Time
}

// Cache is a thread-safe LRU cache of marshaled prediction results,
// with an optional BadgerDB durable tier.
type Cache struct {
	mu sync.RWMutex

	maxSize int
	ttl     time.Duration

	list  *list.List
	items map[uint64]*list.Element

	durable *badger.DB

	hits   uint64
	misses uint64
}

// Config configures a Cache.
type Config struct {
	MaxSize     int
	TTL         time.Duration
	DurablePath string // empty disables the durable tier
}

// New creates a Cache. If config.DurablePath is non-empty, a BadgerDB
// instance is opened there as a write-through durable tier.
func New(config Config) (*Cache, error) {
	maxSize := config.MaxSize
	if maxSize <= 0 {
		maxSize = 1000
	}

	c := &Cache{
		maxSize: maxSize,
		ttl:     config.TTL,
		list:    list.New(),
		items:   make(map[uint64]*list.Element, maxSize),
	}

	if config.DurablePath != "" {
		opts := badger.DefaultOptions(config.DurablePath).WithLogger(nil)
		db, err := badger.Open(opts)
		if err != nil {
			return nil, err
		}
		c.durable = db
	}

	return c, nil
}

// Get returns the cached value (unmarshaled into out) for key, or
// false if absent or expired. A key missing from memory but present in
// the durable tier is loaded back into memory and counts as a hit.
func (c *Cache) Get(key Key, out interface{}) bool {
	h := key.Hash()

	c.mu.RLock()
	elem, ok := c.items[h]
	c.mu.RUnlock()

	if ok {
		e := elem.Value.(*entry)
		if c.ttl > 0 && time.Now().After(e.expiresAt) {
			c.mu.Lock()
			c.removeElement(elem)
			c.mu.Unlock()
			atomic.AddUint64(&c.misses, 1)
			return false
		}

		c.mu.Lock()
		c.list.MoveToFront(elem)
		c.mu.Unlock()

		atomic.AddUint64(&c.hits, 1)
		return json.Unmarshal(e.value, out) == nil
	}

	if c.durable != nil {
		var raw []byte
		err := c.durable.View(func(txn *badger.Txn) error {
			item, err := txn.Get(encodeKey(h))
			if err != nil {
				return err
			}
			return item.Value(func(v []byte) error {
				raw = append([]byte(nil), v...)
				return nil
			})
		})
		if err == nil {
			c.put(h, raw, false)
			atomic.AddUint64(&c.hits, 1)
			return json.Unmarshal(raw, out) == nil
		}
	}

	atomic.AddUint64(&c.misses, 1)
	return false
}

// Put stores value under key, evicting the least-recently-used entry
// if the cache is at capacity, and writing through to the durable
// tier if one is configured.
func (c *Cache) Put(key Key, value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}

	h := key.Hash()
	c.put(h, body, true)
	return nil
}

func (c *Cache) put(h uint64, body []byte, writeThrough bool) {
	c.mu.Lock()
	if elem, ok := c.items[h]; ok {
		e := elem.Value.(*entry)
		e.value = body
		if c.ttl > 0 {
			e.expiresAt = time.Now().Add(c.ttl)
		}
		c.list.MoveToFront(elem)
		c.mu.Unlock()
	} else {
		for c.list.Len() >= c.maxSize {
			c.evictOldest()
		}
		e := &entry{key: h, value: body}
		if c.ttl > 0 {
			e.expiresAt = time.Now().Add(c.ttl)
		}
		elem := c.list.PushFront(e)
		c.items[h] = elem
		c.mu.Unlock()
	}

	if writeThrough && c.durable != nil {
		_ = c.durable.Update(func(txn *badger.Txn) error {
			return txn.Set(encodeKey(h), body)
		})
	}
}

func (c *Cache) evictOldest() {
	elem := c.list.Back()
	if elem != nil {
		c.removeElement(elem)
	}
}

func (c *Cache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	e := elem.Value.(*entry)
	delete(c.items, e.key)
}

// Len returns the number of entries held in the in-memory tier.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Len()
}

// Close releases the durable tier, if one was opened.
func (c *Cache) Close() error {
	if c.durable != nil {
		return c.durable.Close()
	}
	return nil
}

func encodeKey(h uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(h >> (8 * i))
	}
	return b
}
