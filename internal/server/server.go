// Package server exposes the payment API over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/zeltonlabs/zelton/internal/config"
	"github.com/zeltonlabs/zelton/internal/metrics"
	payoutdomain "github.com/zeltonlabs/zelton/internal/payout/domain"
	rentdomain "github.com/zeltonlabs/zelton/internal/rentpayment/domain"
	subscriptiondomain "github.com/zeltonlabs/zelton/internal/subscription/domain"
	"github.com/zeltonlabs/zelton/internal/webhook"
)

type ServerParams struct {
	fx.In

	Engine        *gin.Engine
	RentPayments  rentdomain.Service
	Subscriptions subscriptiondomain.Service
	Payouts       payoutdomain.Service
	Webhooks      *webhook.Service
	Config        config.Config
	Logger        *zap.Logger
}

type Server struct {
	engine          *gin.Engine
	rentPaymentSvc  rentdomain.Service
	subscriptionSvc subscriptiondomain.Service
	payoutSvc       payoutdomain.Service
	webhookSvc      *webhook.Service
	cfg             config.Config
	log             *zap.Logger
}

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))
	engine.Use(metrics.Middleware())
	return engine
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Engine,
		rentPaymentSvc:  p.RentPayments,
		subscriptionSvc: p.Subscriptions,
		payoutSvc:       p.Payouts,
		webhookSvc:      p.Webhooks,
		cfg:             p.Config,
		log:             p.Logger.Named("server"),
	}
}

func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", metrics.Handler())

	api := s.engine.Group("/api")

	payments := api.Group("/payments")
	payments.POST("/initiate_rent_payment", s.InitiateRentPayment)
	payments.GET("/verify-payment/:merchant_order_id", s.VerifyRentPayment)
	payments.GET("/outstanding/:tenant_id", s.GetOutstandingBalance)

	api.POST("/webhooks/phonepe-webhook", s.PhonePeWebhook)

	subs := api.Group("/owner-subscriptions")
	subs.POST("/initiate_payment", s.InitiateSubscriptionPayment)
	subs.POST("/initiate_upgrade", s.InitiateSubscriptionUpgrade)
	subs.GET("/verify-payment/:merchant_order_id", s.VerifySubscriptionPayment)

	api.GET("/pricing-plans", s.ListPricingPlans)

	payouts := api.Group("/payouts")
	payouts.POST("/:id/retry", s.RetryPayout)
	payouts.GET("/:id/status", s.GetPayoutStatus)
	payouts.GET("/by-payment/:payment_id", s.GetPayoutByPayment)
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func RunHTTP(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine, NewServer),
	fx.Invoke(func(s *Server) { s.RegisterAPIRoutes() }),
	fx.Invoke(RunHTTP),
)
