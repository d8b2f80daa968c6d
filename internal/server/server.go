package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	activitydomain "github.com/coopsuite/copay/internal/activity/domain"
	balancedomain "github.com/coopsuite/copay/internal/balance/domain"
	"github.com/coopsuite/copay/internal/config"
	"github.com/coopsuite/copay/internal/identity"
	paymentdomain "github.com/coopsuite/copay/internal/payment/domain"
	"github.com/coopsuite/copay/internal/payment/webhook"
	paymenttypedomain "github.com/coopsuite/copay/internal/paymenttype/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
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
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	paymentSvc     paymentdomain.Service
	paymentTypeSvc paymenttypedomain.Service
	balanceSvc     balancedomain.Service
	webhookSvc     *webhook.Service
	activitySvc    activitydomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	PaymentSvc     paymentdomain.Service
	PaymentTypeSvc paymenttypedomain.Service
	BalanceSvc     balancedomain.Service
	WebhookSvc     *webhook.Service
	ActivitySvc    activitydomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("server"),
		paymentSvc:     p.PaymentSvc,
		paymentTypeSvc: p.PaymentTypeSvc,
		balanceSvc:     p.BalanceSvc,
		webhookSvc:     p.WebhookSvc,
		activitySvc:    p.ActivitySvc,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.ActorContext())

	// -------- Payments --------
	api.POST("/payments", s.RequireActor(), s.InitiatePayment)
	api.GET("/payments", s.RequireActor(), s.ListPayments)
	api.GET("/payments/search", s.RequireActor(), s.SearchPayments)
	api.GET("/payments/cooperative", s.RequireRole(identity.RoleCooperativeAdmin, identity.RolePlatformAdmin), s.ListCooperativePayments)
	api.GET("/payments/:id", s.RequireActor(), s.GetPaymentByID)

	// -------- Payment Types --------
	api.GET("/payment-types", s.RequireActor(), s.ListPaymentTypes)
	api.GET("/payment-types/active", s.RequireActor(), s.ListActivePaymentTypes)
	api.POST("/payment-types", s.RequireRole(identity.RoleCooperativeAdmin, identity.RolePlatformAdmin), s.CreatePaymentType)
	api.PATCH("/payment-types/:id", s.RequireRole(identity.RoleCooperativeAdmin, identity.RolePlatformAdmin), s.UpdatePaymentType)
	api.POST("/payment-types/:id/activate", s.RequireRole(identity.RoleCooperativeAdmin, identity.RolePlatformAdmin), s.ActivatePaymentType)
	api.POST("/payment-types/:id/deactivate", s.RequireRole(identity.RoleCooperativeAdmin, identity.RolePlatformAdmin), s.DeactivatePaymentType)

	// -------- Balances --------
	api.GET("/balances/overview", s.RequireRole(identity.RolePlatformAdmin), s.GetBalanceOverview)
	api.GET("/balances/copay", s.RequireRole(identity.RolePlatformAdmin), s.GetCopayBalance)
	api.GET("/balances/revenue", s.RequireRole(identity.RolePlatformAdmin), s.GetRevenueSummary)
	api.GET("/balances/cooperative/:id", s.RequireRole(identity.RoleCooperativeAdmin, identity.RolePlatformAdmin), s.GetCooperativeBalance)
	api.POST("/balances/redistribute/payment/:id", s.RequireRole(identity.RolePlatformAdmin), s.RedistributePayment)
	api.POST("/balances/redistribute/batch", s.RequireRole(identity.RolePlatformAdmin), s.RedistributeBatch)

	// -------- Activity --------
	api.GET("/activity-logs", s.RequireRole(identity.RoleCooperativeAdmin, identity.RolePlatformAdmin), s.ListActivityLogs)
}

func (s *Server) registerWebhookRoutes() {
	// No actor context: the gateway authenticates with its signature.
	s.engine.POST("/api/webhooks/payments/:provider", s.HandlePaymentWebhook)
}
