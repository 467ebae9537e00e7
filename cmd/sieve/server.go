package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/modwatch/modwatch/platform"
	"github.com/modwatch/modwatch/policy"
	"github.com/modwatch/modwatch/policy/kvstore"
	"github.com/modwatch/modwatch/policy/ledger"
	"github.com/modwatch/modwatch/scheduler"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
)

type Server struct {
	logger    *slog.Logger
	engine    *policy.Engine
	registrar *scheduler.TickerRegistrar
	records   kvstore.KVStore
	echo      *echo.Echo

	installs     []string
	scanInterval time.Duration
}

type Config struct {
	PlatformHost      string
	PlatformToken     string
	PlatformRateLimit int
	RedisURL          string
	SettingsFile      string
	Installs          []string
	ScanInterval      time.Duration
	ActionAttempts    int
	Logger            *slog.Logger
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	client := platform.NewClient(config.PlatformHost, config.PlatformToken, config.PlatformRateLimit)

	var counters ledger.CountStore
	var records kvstore.KVStore
	if config.RedisURL != "" {
		cnt, err := ledger.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, err
		}
		counters = cnt

		kv, err := kvstore.NewRedisKVStore(config.RedisURL, ledger.DefaultTTL)
		if err != nil {
			return nil, err
		}
		records = kv
	} else {
		logger.Warn("redis not configured, counters and removal records will not survive restarts")
		counters = ledger.NewMemCountStore()
		records = kvstore.NewMemKVStore(100_000, ledger.DefaultTTL)
	}

	engine := &policy.Engine{
		Logger:      logger,
		Directory:   client,
		Mod:         client,
		Settings:    &policy.FileSettingsStore{Path: config.SettingsFile},
		Counters:    counters,
		Records:     records,
		Rules:       policy.DefaultRules(),
		MaxAttempts: config.ActionAttempts,
	}

	s := &Server{
		logger:       logger,
		engine:       engine,
		registrar:    scheduler.NewTickerRegistrar(logger),
		records:      records,
		installs:     config.Installs,
		scanInterval: config.ScanInterval,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.POST("/webhooks/:install/post-submit", s.handlePostSubmit)
	e.POST("/webhooks/:install/comment-create", s.handleCommentCreate)
	e.GET("/_health", s.handleHealthCheck)
	s.echo = e

	return s, nil
}

// Run registers the periodic feed scans and serves webhooks until the
// context is canceled.
func (s *Server) Run(ctx context.Context, bind string) error {
	for _, install := range s.installs {
		install := install
		id, err := scheduler.ReplaceScanJob(ctx, s.registrar, s.records, install, s.scanInterval, func(jobCtx context.Context) {
			if err := s.engine.ProcessFeedScan(jobCtx, install); err != nil {
				s.logger.Error("periodic feed scan failed", "install", install, "err", err)
			}
		})
		if err != nil {
			return err
		}
		s.logger.Info("registered feed scan", "install", install, "job", id)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting webhook server", "bind", bind)
	if err := s.echo.Start(bind); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (s *Server) handlePostSubmit(c echo.Context) error {
	var evt policy.PostEvent
	if err := c.Bind(&evt); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event payload")
	}
	install := c.Param("install")
	postEventsReceived.Inc()

	// webhook delivery has its own timeout; handle the event detached
	// from the request context
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		ctx, span := tracer.Start(ctx, "handlePostSubmit")
		defer span.End()
		if err := s.engine.ProcessPostSubmit(ctx, install, evt); err != nil {
			s.logger.Error("post-submit handling failed", "install", install, "post", evt.ID, "err", err)
		}
	}()
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handleCommentCreate(c echo.Context) error {
	var evt policy.CommentEvent
	if err := c.Bind(&evt); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event payload")
	}
	install := c.Param("install")
	commentEventsReceived.Inc()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		ctx, span := tracer.Start(ctx, "handleCommentCreate")
		defer span.End()
		if err := s.engine.ProcessCommentCreate(ctx, install, evt); err != nil {
			s.logger.Error("comment-create handling failed", "install", install, "comment", evt.ID, "err", err)
		}
	}()
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
