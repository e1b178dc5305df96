package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aeternum-guides/nwdb/internal/cache"
	"github.com/aeternum-guides/nwdb/internal/nwdb"
	"github.com/aeternum-guides/nwdb/internal/objectives"
)

const shutdownTimeout = 10 * time.Second

// Config holds configuration options for the HTTP server
type Config struct {
	ListenAddr string
	LogBodies  bool
}

// Server exposes the database client over a JSON API
type Server struct {
	engine     *gin.Engine
	config     Config
	client     *nwdb.Client
	objectives *objectives.Service
	cache      cache.Cache
	logger     *logrus.Logger
}

// New creates the server and registers its routes
func New(config *Config, client *nwdb.Client, objectivesService *objectives.Service, store cache.Cache, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cfg := Config{ListenAddr: ":8080"}
	if config != nil {
		cfg.LogBodies = config.LogBodies
		if config.ListenAddr != "" {
			cfg.ListenAddr = config.ListenAddr
		}
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:     gin.New(),
		config:     cfg,
		client:     client,
		objectives: objectivesService,
		cache:      store,
		logger:     logger,
	}
	s.engine.Use(gin.Recovery(), LoggerMiddleware(logger, cfg.LogBodies))
	s.engine.GET("/health-check", func(c *gin.Context) {
		c.JSON(http.StatusOK, "ok")
	})
	s.registerRoutes(s.engine.Group("/v1"))
	return s
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Listening on %s", s.config.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve on %s: %w", s.config.ListenAddr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
