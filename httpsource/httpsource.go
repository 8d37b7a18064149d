// Package httpsource reads tiles of a remote pyramid over HTTP.
package httpsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/eak1mov/go-deepzoom/tile"
)

var ErrUnexpectedStatus = errors.New("deepzoom: unexpected http status")

const (
	DefaultUserAgent = "go-deepzoom/1.0"
	DefaultTimeout   = 30 * time.Second
)

// Reader implements tile.Reader for tiles served under a URL pattern,
// e.g. "https://example.com/image_files/{level}/{column}_{row}.jpg".
type Reader struct {
	urlPattern string
	client     *http.Client
	userAgent  string
	logger     *slog.Logger
}

type config struct {
	Client    *http.Client
	UserAgent string
	Logger    *slog.Logger
}

type Option func(*config)

func WithClient(client *http.Client) Option {
	return func(c *config) { c.Client = client }
}

func WithUserAgent(userAgent string) Option {
	return func(c *config) { c.UserAgent = userAgent }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

func NewReader(urlPattern string, opts ...Option) (*Reader, error) {
	if err := tile.ValidatePattern(urlPattern); err != nil {
		return nil, err
	}
	c := config{
		Client:    &http.Client{Timeout: DefaultTimeout},
		UserAgent: DefaultUserAgent,
		Logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &Reader{
		urlPattern: urlPattern,
		client:     c.Client,
		userAgent:  c.UserAgent,
		logger:     c.Logger,
	}, nil
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	return r.ReadTileContext(context.Background(), tileID)
}

// ReadTileContext fetches a single tile. A 404 response reads as a missing tile.
func (r *Reader) ReadTileContext(ctx context.Context, tileID tile.ID) ([]byte, error) {
	url := tile.FormatPattern(r.urlPattern, tileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tile %v: %w", tileID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		r.logger.Debug("deepzoom: tile not found", "tile", tileID, "url", url)
		return make([]byte, 0), nil
	default:
		return nil, fmt.Errorf("%w: %v for tile %v", ErrUnexpectedStatus, resp.StatusCode, tileID)
	}

	tileData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile %v: %w", tileID, err)
	}
	return tileData, nil
}
