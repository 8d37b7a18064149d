package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/eak1mov/go-deepzoom/server"
	"github.com/google/subcommands"
)

type serveCmd struct {
	inputFormat string
	inputPath   string
	addr        string
	name        string
}

func (c *serveCmd) Name() string     { return "serve" }
func (c *serveCmd) Synopsis() string { return "serve a pyramid over HTTP" }
func (c *serveCmd) Usage() string {
	return "dzutil serve -i <path> [-if <format> -addr <host:port> -name <name>]\n"
}
func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path or URL of a .dzi")
	f.StringVar(&c.inputFormat, "if", "", "Input format (dzi, imageset, mbtiles, pmtiles, http)")
	f.StringVar(&c.addr, "addr", ":8080", "Listen address")
	f.StringVar(&c.name, "name", server.DefaultName, "Image name in URLs")
}

func (c *serveCmd) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	reader, d, closeReader, err := openSource(ctx, c.inputFormat, c.inputPath)
	if err != nil {
		return err
	}
	defer closeReader()

	srv := &http.Server{
		Addr:              c.addr,
		Handler:           server.New(d, reader, server.WithName(c.name), server.WithLogger(slog.Default())).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("serving pyramid", "addr", c.addr, "descriptor", "/"+c.name+".dzi", "image", d.String())
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" {
		slog.Error("input path is required")
		return subcommands.ExitUsageError
	}
	if err := c.run(ctx); err != nil {
		slog.Error("serve failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
