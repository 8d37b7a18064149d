package viewer

import (
	"image"
	"iter"
	"log/slog"
	"time"

	"github.com/golang/geo/r2"

	"github.com/eak1mov/go-deepzoom/cache"
	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
)

// LoadedTile is a decoded tile ready to be drawn.
type LoadedTile struct {
	ID    tile.ID
	Image image.Image
}

// Session connects a pyramid, a level selector and a tile cache.
// A level change starts a new cache epoch, so fetches for the previous level are dropped.
type Session struct {
	descriptor *pyramid.Descriptor
	selector   *LevelSelector
	cache      *cache.Cache
	logger     *slog.Logger
}

type config struct {
	Delay        time.Duration
	CacheOptions []cache.Option
	Logger       *slog.Logger
}

type Option func(*config)

// WithDelay sets the zoom-in debounce delay.
func WithDelay(delay time.Duration) Option {
	return func(c *config) { c.Delay = delay }
}

// WithCacheOptions configures the tile cache, e.g. its capacity or ready callback.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(c *config) { c.CacheOptions = append(c.CacheOptions, opts...) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

func NewSession(d *pyramid.Descriptor, source tile.Reader, opts ...Option) *Session {
	c := config{
		Delay:  DefaultDelay,
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&c)
	}

	cacheOptions := append([]cache.Option{cache.WithLogger(c.Logger)}, c.CacheOptions...)
	s := &Session{
		descriptor: d,
		selector:   NewLevelSelector(0, c.Delay),
		cache:      cache.New(source, cacheOptions...),
		logger:     c.Logger,
	}
	s.selector.OnChange(func(level int) {
		epoch := s.cache.Advance()
		s.logger.Debug("deepzoom: level changed", "level", level, "epoch", epoch)
	})
	return s
}

func (s *Session) Descriptor() *pyramid.Descriptor { return s.descriptor }
func (s *Session) Selector() *LevelSelector        { return s.selector }
func (s *Session) Level() int                      { return s.selector.Current() }
func (s *Session) Epoch() uint64                   { return s.cache.Epoch() }

// Fit selects the lowest level that fills a viewport of the given size, immediately.
func (s *Session) Fit(viewportWidth, viewportHeight float64) int {
	level := s.descriptor.LevelForViewport(viewportWidth, viewportHeight)
	s.selector.Set(level)
	return level
}

// Zoom feeds a new display scale, 1 meaning full resolution.
func (s *Session) Zoom(scale float64) {
	s.selector.Update(s.descriptor.LevelForScale(scale))
}

// Tiles returns the tiles needed to draw rect, given in full resolution pixels,
// from level 0 up to the current level.
func (s *Session) Tiles(rect r2.Rect) iter.Seq[tile.ID] {
	return s.descriptor.VisibleTilesUntilFill(rect, s.selector.Current())
}

// Resolve returns the cached tiles for rect and schedules fetches for the rest.
// pending is the number of tiles not available yet.
func (s *Session) Resolve(rect r2.Rect) (loaded []LoadedTile, pending int) {
	for tileID := range s.Tiles(rect) {
		if img, ok := s.cache.Get(tileID); ok {
			loaded = append(loaded, LoadedTile{tileID, img})
		} else {
			pending++
		}
	}
	return loaded, pending
}

// Close stops the selector and the cache workers.
func (s *Session) Close() {
	s.selector.Stop()
	s.cache.Close()
}
