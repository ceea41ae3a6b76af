// Package server exposes the operator HTTP surface: health, metrics, a manual
// billing trigger and read-only invoice lookups.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	attemptdomain "github.com/smallbiznis/planbilling/internal/attempt/domain"
	"github.com/smallbiznis/planbilling/internal/billing"
	"github.com/smallbiznis/planbilling/internal/config"
	"github.com/smallbiznis/planbilling/internal/observability"
	obsmiddleware "github.com/smallbiznis/planbilling/internal/observability/logger"
	obstracing "github.com/smallbiznis/planbilling/internal/observability/tracing"
	"github.com/smallbiznis/planbilling/internal/receipt"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

// BillingRunner triggers one billing tick.
type BillingRunner interface {
	RunTick(ctx context.Context) (billing.TickResult, error)
}

// ReceiptRenderer renders the receipt PDF of a paid invoice.
type ReceiptRenderer interface {
	Render(ctx context.Context, uid string) ([]byte, error)
}

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("ops http server stopped", zap.Error(err))
				}
			}()
			log.Info("ops http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Billing  *billing.Orchestrator
	Attempts attemptdomain.Service
	Receipts *receipt.Renderer
}

type Server struct {
	db       *gorm.DB
	log      *zap.Logger
	billing  BillingRunner
	attempts attemptdomain.Service
	receipts ReceiptRenderer
}

func NewServer(p ServerParams) *Server {
	return &Server{
		db:       p.DB,
		log:      p.Log.Named("http.server"),
		billing:  p.Billing,
		attempts: p.Attempts,
		receipts: p.Receipts,
	}
}

func registerRoutes(r *gin.Engine, s *Server) {
	s.RegisterRoutes(r)
}

func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", s.Health)

	internal := r.Group("/internal")
	internal.POST("/billing/run", s.RunBilling)
	internal.GET("/invoices/:uid/attempts", s.ListAttempts)
	internal.GET("/invoices/:uid/receipt.pdf", s.DownloadReceipt)
}
