package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/karlseguin/ccache/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bigredeye/gradebook/internal/analytics"
	"github.com/bigredeye/gradebook/internal/config"
	"github.com/bigredeye/gradebook/internal/ingest"
	"github.com/bigredeye/gradebook/internal/records"
)

type server struct {
	config *config.Config
	logger *zap.Logger

	store      records.Store
	identities records.Identities
	query      *records.Query
	analytics  *analytics.Engine
	pipeline   *ingest.Pipeline

	sessions      *ccache.Cache
	maxUploadSize int64
}

func newServer(
	config *config.Config,
	logger *zap.Logger,
	store records.Store,
	identities records.Identities,
	pipeline *ingest.Pipeline,
) (*server, error) {
	maxUploadSize, err := config.MaxUploadSize()
	if err != nil {
		return nil, err
	}

	return &server{
		config:        config,
		logger:        logger,
		store:         store,
		identities:    identities,
		query:         records.NewQuery(store),
		analytics:     analytics.NewEngine(store, logger),
		pipeline:      pipeline,
		sessions:      ccache.New(ccache.Configure().MaxSize(config.Sessions.CacheSize)),
		maxUploadSize: maxUploadSize,
	}, nil
}

func (s *server) routes() (*gin.Engine, error) {
	r := gin.New()

	r.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(s.logger, true))

	if err := setupAuth(s, r); err != nil {
		return nil, err
	}

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong "+fmt.Sprint(time.Now().Unix()))
	})

	group := r.Group("/api")
	setupLoginService(s, group)
	setupStudentsService(s, group)
	setupAdminService(s, group)

	return r, nil
}

const shutdownTimeout = 30 * time.Second

// run serves until ctx is done, then waits for in-flight requests.
func (s *server) run(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	r, err := s.routes()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    s.config.Server.ListenAddress,
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting server", zap.String("bind_address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
