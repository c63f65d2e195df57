package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	analyticsdomain "github.com/siteassist/insight/internal/analytics/domain"
	authdomain "github.com/siteassist/insight/internal/auth/domain"
	"github.com/siteassist/insight/internal/config"
	eventlogdomain "github.com/siteassist/insight/internal/eventlog/domain"
	licensedomain "github.com/siteassist/insight/internal/license/domain"
	productcatalogdomain "github.com/siteassist/insight/internal/productcatalog/domain"
	"github.com/siteassist/insight/internal/ratelimit"
	sessiondomain "github.com/siteassist/insight/internal/session/domain"
	"github.com/siteassist/insight/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewHTTPMetrics),
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	if metrics != nil {
		r.Use(MetricsMiddleware(metrics))
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, metrics *HTTPMetrics) *gin.Engine {
	return NewEngine(log, metrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	authsvc       authdomain.Service
	licenseSvc    licensedomain.Service
	eventlogSvc   eventlogdomain.Service
	sessionSvc    sessiondomain.Service
	analyticsSvc  analyticsdomain.Service
	catalogSvc    productcatalogdomain.Service
	eventlogRepo  repository.Repository[eventlogdomain.ConversationLog]
	ingestLimiter *ratelimit.IngestLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	Authsvc      authdomain.Service
	LicenseSvc   licensedomain.Service
	EventlogSvc  eventlogdomain.Service
	SessionSvc   sessiondomain.Service
	AnalyticsSvc analyticsdomain.Service
	CatalogSvc   productcatalogdomain.Service
	EventlogRepo repository.Repository[eventlogdomain.ConversationLog]

	IngestLimiter *ratelimit.IngestLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("http.server"),
		authsvc:       p.Authsvc,
		licenseSvc:    p.LicenseSvc,
		eventlogSvc:   p.EventlogSvc,
		sessionSvc:    p.SessionSvc,
		analyticsSvc:  p.AnalyticsSvc,
		catalogSvc:    p.CatalogSvc,
		eventlogRepo:  p.EventlogRepo,
		ingestLimiter: p.IngestLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/validate-dashboard-access", s.ValidateDashboardAccess)

	// -------- Dashboard --------
	api.GET("/dashboard/stats", s.AuthRequired(), s.DashboardStats)
	api.GET("/dashboard/chatbot/sessions", s.AuthRequired(), s.ChatbotSessions)
	api.POST("/dashboard/downloads-activations", s.AuthRequired(), s.DownloadsActivations)
	api.GET("/dashboard/product-distribution", s.AuthRequired(), s.ProductDistribution)
	api.GET("/dashboard/products", s.AuthRequired(), s.Products)
	api.GET("/dashboard/licenses/:licenseKey/stats", s.AuthRequired(), s.LicenseStats)

	// -------- Analytics --------
	api.GET("/analytics/distribution", s.AuthRequired(), s.Distribution)

	// -------- Conversations --------
	api.GET("/conversations/:conversationId", s.AuthRequired(), s.ConversationMessages)
	api.GET("/export", s.AuthRequired(), s.Export)

	// -------- Custom products --------
	api.GET("/custom-product/:productType", s.AuthRequired(), s.CustomProductData)
	api.POST("/licenses/custom-product", s.AuthRequired(), s.RegisterCustomProduct)

	// -------- Webhooks --------
	api.POST("/webhook/chatbot", s.IngestRateLimit(), s.ChatbotWebhook)
	api.GET("/webhook/chatbot", s.ChatbotWebhookStatus)
	api.POST("/webhook/setup-agent", s.SetupAgentWebhook)
	api.POST("/webhook/email-assistant", s.EmailAssistantWebhook)
	api.POST("/webhook/voice-assistant", s.VoiceAssistantWebhook)

	if s.cfg.Environment != "production" {
		api.GET("/test/check-logs", s.CheckLogs)
	}
}
