// Package server exposes the catalog over HTTP for the chat transport.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"price-catalog/src/pkg/catalog"
	echomw "price-catalog/src/pkg/echo-middleware"
	"price-catalog/src/pkg/ingest"
	"price-catalog/src/pkg/session"
)

// Catalog is the part of *catalog.Catalog the handlers use.
type Catalog interface {
	Get(name string) (entry catalog.Entry, found bool)
	Set(ctx context.Context, name string, rawPrice string) (e *xerr.Error)
	Search(substring string) []catalog.Entry
	Entries() []catalog.Entry
}

// Ingestor is the part of *ingest.Ingestor the upload handler uses.
type Ingestor interface {
	Ingest(ctx context.Context, kind ingest.SourceKind, raw []byte) (result ingest.Result, e *xerr.Error)
}

// Reply is the body of every response. Each message is one chat message for the requester.
type Reply struct {
	Messages []string `json:"messages"`
}

type Server struct {
	echo     *echo.Echo
	catalog  Catalog
	ingestor Ingestor
	uploads  *session.PendingUploads
	cfg      Config
}

/*
New wires the routes. Mutating routes require apiToken as bearer token, read
routes are open.
*/
func New(cfg Config, c Catalog, ingestor Ingestor, uploads *session.PendingUploads, apiToken string) *Server {
	s := &Server{
		echo:     echo.New(),
		catalog:  c,
		ingestor: ingestor,
		uploads:  uploads,
		cfg:      cfg,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(echomw.RequestIDMiddleware)
	s.echo.Use(echomw.RouteAccessLoggerMiddleware)
	s.echo.Use(echomw.RateLimiterMiddleware)

	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/items/:name", s.handleValue)
	s.echo.GET("/search", s.handleSearch)
	s.echo.GET("/budget", s.handleBudget)

	requireToken := echomw.RequireBearerToken(apiToken)
	s.echo.POST("/items", s.handleAdd, requireToken)
	s.echo.POST("/uploads/pending", s.handleUploadPending, requireToken)
	s.echo.POST("/uploads/:filename", s.handleUpload, requireToken)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Serve listens on the configured address until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) (e *xerr.Error) {
	address := fmt.Sprintf("%s:%d", s.cfg.Address, s.cfg.Port)
	startErr := make(chan error, 1)

	go func() {
		tl.Log(tl.Notice, palette.BlueBold, "%s price catalog server on '%s'", "Starting", address)
		err := s.echo.Start(address)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			startErr <- err
		}
		close(startErr)
	}()

	select {
	case err := <-startErr:
		if err != nil {
			return xerr.NewError(err, "start HTTP server", address)
		}
		return e
	case <-ctx.Done():
	}

	tl.Log(tl.Notice, palette.Yellow, "%s price catalog server", "Stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	shutdownErr := s.echo.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		return xerr.NewError(shutdownErr, "shut down HTTP server", address)
	}
	tl.Log(tl.Notice1, palette.GreenBold, "%s", "Server stopped")
	return e
}

func reply(c echo.Context, status int, messages ...string) error {
	return c.JSON(status, Reply{Messages: messages})
}
