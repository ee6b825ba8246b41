package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/dealroster/internal/config"
	"github.com/smallbiznis/dealroster/internal/observability"
	obsmiddleware "github.com/smallbiznis/dealroster/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/dealroster/internal/observability/metrics"
	obstracing "github.com/smallbiznis/dealroster/internal/observability/tracing"
	participantdomain "github.com/smallbiznis/dealroster/internal/participant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, rosterMetrics *obsmetrics.RosterMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(rosterMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, rosterMetrics *obsmetrics.RosterMetrics) *gin.Engine {
	if obsCfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, rosterMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	roster participantdomain.Service
	log    *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin    *gin.Engine
	Roster participantdomain.Service
	Log    *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		roster: p.Roster,
		log:    p.Log.Named("http.server"),
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", CallerRequired())

	// -------- Opportunities --------
	api.POST("/opportunities", s.CreateOpportunity)
	api.GET("/opportunities/:id", s.GetOpportunity)
	api.PUT("/opportunities/:id/participants", s.SyncParticipants)

	// -------- Participants --------
	api.POST("/participants/validate", s.ValidateParticipants)
	api.POST("/participants/bulk-sync", s.BulkSyncParticipants)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrRouteNotFound)
	})
}
