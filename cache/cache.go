// Package cache keeps decoded tiles of the current view in a bounded FIFO store
// and fetches missing tiles asynchronously on a fixed worker pool.
//
// Fetches are tagged with the epoch that was current when they were requested.
// Advancing the epoch does not interrupt running fetches, but their results are
// discarded on arrival instead of being inserted.
package cache

import (
	"image"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eak1mov/go-deepzoom/codec"
	"github.com/eak1mov/go-deepzoom/tile"
)

const DefaultCapacity = 300

// DecodeFunc converts raw tile bytes into pixels.
type DecodeFunc func([]byte) (image.Image, error)

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Stale     uint64 // fetches discarded because their epoch was superseded
}

type job struct {
	tileID tile.ID
	epoch  uint64
}

type Cache struct {
	source   tile.Reader
	decode   DecodeFunc
	ready    func(tile.ID, image.Image)
	logger   *slog.Logger
	capacity int

	mu      sync.RWMutex
	entries map[tile.ID]image.Image
	ring    []tile.ID
	head    int
	epoch   uint64
	evicted uint64

	jobsMu   sync.Mutex
	jobsCond *sync.Cond
	jobs     []job
	pending  map[job]struct{}
	closed   bool
	wg       sync.WaitGroup

	hits   atomic.Uint64
	misses atomic.Uint64
	stale  atomic.Uint64
}

type config struct {
	Capacity int
	Workers  int
	Decode   DecodeFunc
	Ready    func(tile.ID, image.Image)
	Logger   *slog.Logger
}

type Option func(*config)

func WithCapacity(capacity int) Option {
	return func(c *config) { c.Capacity = capacity }
}

func WithWorkers(workers int) Option {
	return func(c *config) { c.Workers = workers }
}

func WithDecoder(decode DecodeFunc) Option {
	return func(c *config) { c.Decode = decode }
}

// WithReadyFunc registers a callback invoked from a worker goroutine
// after a fetched tile has been inserted.
func WithReadyFunc(ready func(tile.ID, image.Image)) Option {
	return func(c *config) { c.Ready = ready }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// New creates a Cache fetching tiles from source and starts its workers.
// Close must be called to stop them.
func New(source tile.Reader, opts ...Option) *Cache {
	cfg := config{
		Capacity: DefaultCapacity,
		Workers:  runtime.GOMAXPROCS(0),
		Decode:   codec.Decode,
		Ready:    func(tile.ID, image.Image) {},
		Logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Capacity = max(cfg.Capacity, 1)
	cfg.Workers = max(cfg.Workers, 1)

	c := &Cache{
		source:   source,
		decode:   cfg.Decode,
		ready:    cfg.Ready,
		logger:   cfg.Logger,
		capacity: cfg.Capacity,
		entries:  make(map[tile.ID]image.Image, cfg.Capacity),
		ring:     make([]tile.ID, 0, cfg.Capacity),
		pending:  make(map[job]struct{}),
	}
	c.jobsCond = sync.NewCond(&c.jobsMu)
	c.wg.Add(cfg.Workers)
	for range cfg.Workers {
		go c.worker()
	}
	return c
}

// Get returns the decoded tile if it is cached. Otherwise it schedules a fetch
// in the current epoch and returns false; requests for a tile already being
// fetched in this epoch are coalesced.
func (c *Cache) Get(tileID tile.ID) (image.Image, bool) {
	c.mu.RLock()
	img, ok := c.entries[tileID]
	epoch := c.epoch
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		return img, true
	}
	c.misses.Add(1)
	c.enqueue(job{tileID, epoch})
	return nil, false
}

func (c *Cache) Contains(tileID tile.ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[tileID]
	return ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Epoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evicted,
		Stale:     c.stale.Load(),
	}
}

// Advance starts a new epoch and returns it. Queued fetches of older epochs are dropped,
// running ones complete but are not inserted.
func (c *Cache) Advance() uint64 {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	c.jobsMu.Lock()
	defer c.jobsMu.Unlock()
	jobs := c.jobs[:0]
	for _, j := range c.jobs {
		if j.epoch == epoch {
			jobs = append(jobs, j)
		} else {
			delete(c.pending, j)
		}
	}
	clear(c.jobs[len(jobs):])
	c.jobs = jobs
	return epoch
}

// Close drops queued fetches and waits for running ones to finish.
func (c *Cache) Close() {
	c.jobsMu.Lock()
	c.closed = true
	c.jobs = nil
	c.jobsCond.Broadcast()
	c.jobsMu.Unlock()
	c.wg.Wait()
}

func (c *Cache) enqueue(j job) {
	c.jobsMu.Lock()
	defer c.jobsMu.Unlock()
	if c.closed {
		return
	}
	if _, ok := c.pending[j]; ok {
		return
	}
	c.pending[j] = struct{}{}
	c.jobs = append(c.jobs, j)
	c.jobsCond.Signal()
}

func (c *Cache) next() (job, bool) {
	c.jobsMu.Lock()
	defer c.jobsMu.Unlock()
	for len(c.jobs) == 0 && !c.closed {
		c.jobsCond.Wait()
	}
	if c.closed {
		return job{}, false
	}
	j := c.jobs[0]
	c.jobs[0] = job{}
	c.jobs = c.jobs[1:]
	return j, true
}

func (c *Cache) done(j job) {
	c.jobsMu.Lock()
	defer c.jobsMu.Unlock()
	delete(c.pending, j)
}

func (c *Cache) worker() {
	defer c.wg.Done()
	for {
		j, ok := c.next()
		if !ok {
			return
		}
		c.process(j)
		c.done(j)
	}
}

func (c *Cache) process(j job) {
	if c.Epoch() != j.epoch {
		c.stale.Add(1)
		return
	}

	tileData, err := c.source.ReadTile(j.tileID)
	if err != nil {
		c.logger.Warn("deepzoom: failed to read tile", "tile", j.tileID, "error", err)
		return
	}
	if len(tileData) == 0 {
		return
	}
	img, err := c.decode(tileData)
	if err != nil {
		c.logger.Warn("deepzoom: failed to decode tile", "tile", j.tileID, "error", err)
		return
	}

	if !c.insert(j, img) {
		c.stale.Add(1)
		return
	}
	c.ready(j.tileID, img)
}

// insert adds the tile unless its epoch is stale, evicting the oldest entry when full.
func (c *Cache) insert(j job, img image.Image) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if j.epoch != c.epoch {
		return false
	}
	if _, ok := c.entries[j.tileID]; ok {
		c.entries[j.tileID] = img
		return true
	}

	if len(c.ring) < c.capacity {
		c.ring = append(c.ring, j.tileID)
	} else {
		delete(c.entries, c.ring[c.head])
		c.ring[c.head] = j.tileID
		c.head = (c.head + 1) % c.capacity
		c.evicted++
	}
	c.entries[j.tileID] = img
	return true
}
