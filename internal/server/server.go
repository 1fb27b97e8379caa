package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/MowahidLatif/helping-hands-backend/internal/audit/domain"
	"github.com/MowahidLatif/helping-hands-backend/internal/auditcontext"
	"github.com/MowahidLatif/helping-hands-backend/internal/authorization"
	campaigndomain "github.com/MowahidLatif/helping-hands-backend/internal/campaign/domain"
	"github.com/MowahidLatif/helping-hands-backend/internal/config"
	donationdomain "github.com/MowahidLatif/helping-hands-backend/internal/donation/domain"
	giveawaydomain "github.com/MowahidLatif/helping-hands-backend/internal/giveaway/domain"
	"github.com/MowahidLatif/helping-hands-backend/internal/observability/logger"
	"github.com/MowahidLatif/helping-hands-backend/internal/observability/metrics"
	"github.com/MowahidLatif/helping-hands-backend/internal/realtime"
	webhookdomain "github.com/MowahidLatif/helping-hands-backend/internal/webhook/domain"
)

// HeaderActorUserID carries the acting user's id on administrative routes.
// Authentication happens upstream; the gateway strips any client-supplied
// value before injecting its own.
const HeaderActorUserID = "X-Actor-User-ID"

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

type Params struct {
	fx.In

	Cfg config.Config
	DB  *gorm.DB
	Log *zap.Logger

	Engine       *gin.Engine
	WebhookSvc   webhookdomain.Service
	CampaignSvc  campaigndomain.Service
	DonationRepo donationdomain.Repository
	GiveawaySvc  giveawaydomain.Service
	AuditSvc     auditdomain.Service
	AuthzSvc     authorization.Service
	Hub          *realtime.Hub
}

// Server owns the HTTP surface: the webhook intake, campaign reads, the
// giveaway endpoints and the websocket upgrade.
type Server struct {
	cfg    config.Config
	db     *gorm.DB
	log    *zap.Logger
	engine *gin.Engine

	webhookSvc   webhookdomain.Service
	campaignSvc  campaigndomain.Service
	donationRepo donationdomain.Repository
	giveawaySvc  giveawaydomain.Service
	auditSvc     auditdomain.Service
	authzSvc     authorization.Service
	hub          *realtime.Hub

	drawLimiter *rateLimiter
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("server"),
		engine:       p.Engine,
		webhookSvc:   p.WebhookSvc,
		campaignSvc:  p.CampaignSvc,
		donationRepo: p.DonationRepo,
		giveawaySvc:  p.GiveawaySvc,
		auditSvc:     p.AuditSvc,
		authzSvc:     p.AuthzSvc,
		hub:          p.Hub,
		drawLimiter:  newRateLimiter(5, time.Minute),
	}
}

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Logger:    log.Named("http"),
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(metrics.GinMiddleware(metrics.NewHTTPMetrics(metrics.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})))
	engine.Use(auditContextMiddleware())
	return engine
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/ws", s.HandleWebsocket)

	s.engine.POST("/webhooks/stripe", s.HandleStripeWebhook)

	api := s.engine.Group("/api")
	{
		api.GET("/campaigns/:id/progress", s.GetCampaignProgress)
		api.GET("/campaigns/:id/donations/recent", s.ListRecentDonations)
		api.POST("/campaigns/:id/draw-winner", s.DrawWinner)
		api.GET("/campaigns/:id/giveaway-logs", s.ListGiveawayLogs)
		api.GET("/audit-logs", s.ListAuditLogs)

		if s.cfg.Environment != "production" {
			api.POST("/test/cleanup", s.TestCleanup)
		}
	}
}

func (s *Server) Healthz(c *gin.Context) {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// auditContextMiddleware copies request identity onto the context so audit
// writes deep in the services pick it up without plumbing.
func auditContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = auditcontext.WithRequestID(ctx, c.GetString("request_id"))
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, engine *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
