// Package server serves a deep zoom pyramid over HTTP in the layout viewers expect:
// the descriptor at /{name}.dzi and tiles at /{name}_files/{level}/{column}_{row}.{format}.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eak1mov/go-deepzoom/dzi"
	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
)

const DefaultName = "image"

// Server serves tiles of a single pyramid read from any tile.Reader.
type Server struct {
	descriptor *pyramid.Descriptor
	reader     tile.Reader
	name       string
	logger     *slog.Logger
	startTime  time.Time
}

type config struct {
	Name   string
	Logger *slog.Logger
}

type Option func(*config)

// WithName sets the image name used in URLs.
func WithName(name string) Option {
	return func(c *config) { c.Name = name }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

func New(d *pyramid.Descriptor, r tile.Reader, opts ...Option) *Server {
	c := config{
		Name:   DefaultName,
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &Server{
		descriptor: d,
		reader:     r,
		name:       c.Name,
		logger:     c.Logger,
		startTime:  time.Now(),
	}
}

// Handler returns the router serving the descriptor, tiles and a health check.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", s.getHealth)
	r.Get("/"+s.name+".dzi", s.getDescriptor)
	r.Get("/"+s.name+"_files/{level}/{column}_{row}.{format}", s.getTile)
	return r
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	response := struct {
		Status string `json:"status"`
		Uptime int    `json:"uptime"`
		Image  string `json:"image"`
	}{
		Status: "healthy",
		Uptime: int(time.Since(s.startTime).Seconds()),
		Image:  s.descriptor.String(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Warn("deepzoom: failed to encode health response", "error", err)
	}
}

func (s *Server) getDescriptor(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml")
	if err := dzi.NewImage(s.descriptor).Write(w); err != nil {
		s.logger.Warn("deepzoom: failed to write descriptor", "error", err)
	}
}

func (s *Server) getTile(w http.ResponseWriter, r *http.Request) {
	level, errLevel := strconv.Atoi(chi.URLParam(r, "level"))
	column, errColumn := strconv.Atoi(chi.URLParam(r, "column"))
	row, errRow := strconv.Atoi(chi.URLParam(r, "row"))
	if err := errors.Join(errLevel, errColumn, errRow); err != nil {
		http.Error(w, "invalid tile coordinates", http.StatusBadRequest)
		return
	}
	format := chi.URLParam(r, "format")
	if format != s.descriptor.Format() {
		http.NotFound(w, r)
		return
	}

	tileID := tile.ID{Level: level, Column: column, Row: row}
	if !s.inPyramid(tileID) {
		http.NotFound(w, r)
		return
	}

	tileData, err := s.reader.ReadTile(tileID)
	if err != nil {
		s.logger.Error("deepzoom: failed to read tile",
			"tile", tileID, "request_id", middleware.GetReqID(r.Context()), "error", err)
		http.Error(w, "failed to read tile", http.StatusInternalServerError)
		return
	}
	if len(tileData) == 0 {
		http.NotFound(w, r)
		return
	}

	if contentType := mime.TypeByExtension("." + format); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(tileData)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(tileData); err != nil {
		s.logger.Debug("deepzoom: failed to write tile", "tile", tileID, "error", err)
	}
}

func (s *Server) inPyramid(t tile.ID) bool {
	d := s.descriptor
	return t.Valid() && t.Level <= d.MaxLevel() &&
		t.Column < d.ColumnsAtLevel(t.Level) && t.Row < d.RowsAtLevel(t.Level) &&
		d.TileExists(t)
}
