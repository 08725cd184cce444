package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/salesdesk/internal/agent"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	"github.com/smallbiznis/salesdesk/internal/appointment"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	"github.com/smallbiznis/salesdesk/internal/audit"
	auditdomain "github.com/smallbiznis/salesdesk/internal/audit/domain"
	"github.com/smallbiznis/salesdesk/internal/authorization"
	"github.com/smallbiznis/salesdesk/internal/clock"
	"github.com/smallbiznis/salesdesk/internal/config"
	"github.com/smallbiznis/salesdesk/internal/earnings"
	earningsdomain "github.com/smallbiznis/salesdesk/internal/earnings/domain"
	"github.com/smallbiznis/salesdesk/internal/incentive"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
	"github.com/smallbiznis/salesdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/salesdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/salesdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/salesdesk/internal/observability/tracing"
	"github.com/smallbiznis/salesdesk/internal/paycycle"
	paycycledomain "github.com/smallbiznis/salesdesk/internal/paycycle/domain"
	"github.com/smallbiznis/salesdesk/internal/ratelimit"
	"github.com/smallbiznis/salesdesk/internal/referral"
	referraldomain "github.com/smallbiznis/salesdesk/internal/referral/domain"
	"github.com/smallbiznis/salesdesk/internal/settings"
	settingsdomain "github.com/smallbiznis/salesdesk/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var serviceModules = fx.Options(
	audit.Module,
	authorization.Module,
	agent.Module,
	paycycle.Module,
	incentive.Module,
	settings.Module,
	appointment.Module,
	referral.Module,
	earnings.Module,
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	serviceModules,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	log            *zap.Logger
	authzSvc       authorization.Service
	auditSvc       auditdomain.Service
	agentSvc       agentdomain.Service
	appointmentSvc appointmentdomain.Service
	payCycleSvc    paycycledomain.Service
	incentiveSvc   incentivedomain.Service
	settingsSvc    settingsdomain.Service
	referralSvc    referraldomain.Service
	earningsSvc    earningsdomain.Service
	importLimiter  *ratelimit.ImportLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Log            *zap.Logger
	AuthzSvc       authorization.Service
	AuditSvc       auditdomain.Service
	AgentSvc       agentdomain.Service
	AppointmentSvc appointmentdomain.Service
	PayCycleSvc    paycycledomain.Service
	IncentiveSvc   incentivedomain.Service
	SettingsSvc    settingsdomain.Service
	ReferralSvc    referraldomain.Service
	EarningsSvc    earningsdomain.Service
	ImportLimiter  *ratelimit.ImportLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		log:            p.Log.Named("http.server"),
		authzSvc:       p.AuthzSvc,
		auditSvc:       p.AuditSvc,
		agentSvc:       p.AgentSvc,
		appointmentSvc: p.AppointmentSvc,
		payCycleSvc:    p.PayCycleSvc,
		incentiveSvc:   p.IncentiveSvc,
		settingsSvc:    p.SettingsSvc,
		referralSvc:    p.ReferralSvc,
		earningsSvc:    p.EarningsSvc,
		importLimiter:  p.ImportLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.AgentRequired())

	api.GET("/me", s.Me)
	api.POST("/me/dismissed-cycles", s.authorize(authorization.ObjectEarnings, authorization.ActionEarningsView), s.DismissCycle)

	api.GET("/appointments", s.authorize(authorization.ObjectAppointment, authorization.ActionAppointmentView), s.ListAppointments)
	api.POST("/appointments", s.authorize(authorization.ObjectAppointment, authorization.ActionAppointmentCreate), s.CreateAppointment)
	api.GET("/appointments/:id", s.authorize(authorization.ObjectAppointment, authorization.ActionAppointmentView), s.GetAppointmentByID)
	api.POST("/appointments/:id/stage", s.authorize(authorization.ObjectAppointment, authorization.ActionAppointmentMove), s.MoveAppointmentStage)
	api.DELETE("/appointments/:id", s.authorize(authorization.ObjectAppointment, authorization.ActionAppointmentDelete), s.DeleteAppointment)

	api.GET("/pay-cycles", s.authorize(authorization.ObjectPayCycle, authorization.ActionPayCycleView), s.ListPayCycles)
	api.GET("/pay-cycles/active", s.authorize(authorization.ObjectPayCycle, authorization.ActionPayCycleView), s.GetActivePayCycle)

	api.GET("/incentive-rules", s.authorize(authorization.ObjectIncentiveRule, authorization.ActionIncentiveRuleView), s.ListIncentiveRules)
	api.GET("/incentives", s.authorize(authorization.ObjectIncentive, authorization.ActionIncentiveView), s.ListIncentives)

	api.GET("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionSettingsView), s.GetSettings)

	api.GET("/earnings", s.authorize(authorization.ObjectEarnings, authorization.ActionEarningsView), s.GetEarnings)
	api.GET("/earnings/team-total", s.authorize(authorization.ObjectEarnings, authorization.ActionEarningsView), s.GetTeamCycleTotal)
	api.GET("/performance", s.authorize(authorization.ObjectEarnings, authorization.ActionEarningsView), s.GetPerformance)
	api.GET("/dashboard", s.authorize(authorization.ObjectEarnings, authorization.ActionEarningsView), s.GetDashboard)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AgentRequired())

	admin.GET("/agents", s.authorize(authorization.ObjectAgent, authorization.ActionAgentView), s.ListAgents)
	admin.POST("/agents", s.authorize(authorization.ObjectAgent, authorization.ActionAgentCreate), s.CreateAgent)

	admin.PUT("/appointments/:id/referrals", s.authorize(authorization.ObjectReferral, authorization.ActionReferralUpdate), s.UpdateReferralCount)
	admin.DELETE("/appointments/:id/referrals/:entryId", s.authorize(authorization.ObjectReferral, authorization.ActionReferralDelete), s.DeleteReferralEntry)
	admin.POST("/referrals/import", s.authorize(authorization.ObjectReferral, authorization.ActionReferralImport), s.ImportRateLimit(), s.ImportReferrals)

	admin.POST("/pay-cycles", s.authorize(authorization.ObjectPayCycle, authorization.ActionPayCycleManage), s.CreatePayCycle)
	admin.PATCH("/pay-cycles/:id", s.authorize(authorization.ObjectPayCycle, authorization.ActionPayCycleManage), s.UpdatePayCycle)
	admin.DELETE("/pay-cycles/:id", s.authorize(authorization.ObjectPayCycle, authorization.ActionPayCycleManage), s.DeletePayCycle)

	admin.POST("/incentive-rules", s.authorize(authorization.ObjectIncentiveRule, authorization.ActionIncentiveRuleManage), s.CreateIncentiveRule)
	admin.POST("/incentive-rules/:id/activate", s.authorize(authorization.ObjectIncentiveRule, authorization.ActionIncentiveRuleManage), s.ActivateIncentiveRule)
	admin.POST("/incentive-rules/:id/deactivate", s.authorize(authorization.ObjectIncentiveRule, authorization.ActionIncentiveRuleManage), s.DeactivateIncentiveRule)
	admin.DELETE("/incentive-rules/:id", s.authorize(authorization.ObjectIncentiveRule, authorization.ActionIncentiveRuleManage), s.DeleteIncentiveRule)

	admin.POST("/incentives", s.authorize(authorization.ObjectIncentive, authorization.ActionIncentiveGrant), s.GrantIncentive)
	admin.DELETE("/incentives/:id", s.authorize(authorization.ObjectIncentive, authorization.ActionIncentiveDelete), s.DeleteIncentive)

	admin.PUT("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionSettingsUpdate), s.UpdateSettings)

	admin.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
