package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/salesdesk/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectAppointment   = "appointment"
	ObjectReferral      = "referral"
	ObjectEarnings      = "earnings"
	ObjectPayCycle      = "pay_cycle"
	ObjectIncentiveRule = "incentive_rule"
	ObjectIncentive     = "incentive"
	ObjectSettings      = "settings"
	ObjectAuditLog      = "audit_log"
	ObjectAgent         = "agent"
)

const (
	ActionAppointmentView   = "appointment.view"
	ActionAppointmentCreate = "appointment.create"
	ActionAppointmentMove   = "appointment.move"
	ActionAppointmentDelete = "appointment.delete"

	ActionReferralUpdate = "referral.update"
	ActionReferralDelete = "referral.delete"
	ActionReferralImport = "referral.import"

	ActionEarningsView     = "earnings.view"
	ActionEarningsViewTeam = "earnings.view_team"

	ActionPayCycleView   = "pay_cycle.view"
	ActionPayCycleManage = "pay_cycle.manage"

	ActionIncentiveRuleView   = "incentive_rule.view"
	ActionIncentiveRuleManage = "incentive_rule.manage"

	ActionIncentiveView   = "incentive.view"
	ActionIncentiveGrant  = "incentive.grant"
	ActionIncentiveDelete = "incentive.delete"

	ActionSettingsView   = "settings.view"
	ActionSettingsUpdate = "settings.update"

	ActionAuditLogView = "audit_log.view"

	ActionAgentView   = "agent.view"
	ActionAgentCreate = "agent.create"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor Actor, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := resolveActor(actor)
	if err != nil {
		return err
	}

	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.auditDenied(ctx, actor, object, action)
		return ErrForbidden
	}
	return nil
}

func resolveActor(actor Actor) (string, string, error) {
	agentID, err := snowflake.ParseString(strings.TrimSpace(actor.AgentID))
	if err != nil || agentID == 0 {
		return "", "", ErrInvalidActor
	}
	role := strings.ToLower(strings.TrimSpace(actor.Role))
	if role == "" {
		return "", "", ErrInvalidActor
	}
	return fmt.Sprintf("agent:%s", agentID.String()), fmt.Sprintf("role:%s", role), nil
}

// ensureGrouping keeps exactly one role link per subject so role changes take effect.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor Actor, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	actorID := strings.TrimSpace(actor.AgentID)
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, strings.ToLower(strings.TrimSpace(actor.Role)), &actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Agents work their own book
		{"role:agent", ObjectAppointment, ActionAppointmentView},
		{"role:agent", ObjectAppointment, ActionAppointmentCreate},
		{"role:agent", ObjectAppointment, ActionAppointmentMove},
		{"role:agent", ObjectAppointment, ActionAppointmentDelete},
		{"role:agent", ObjectEarnings, ActionEarningsView},
		{"role:agent", ObjectPayCycle, ActionPayCycleView},
		{"role:agent", ObjectIncentiveRule, ActionIncentiveRuleView},
		{"role:agent", ObjectIncentive, ActionIncentiveView},
		{"role:agent", ObjectSettings, ActionSettingsView},

		// Admin-only capabilities
		{"role:admin", ObjectReferral, ActionReferralUpdate},
		{"role:admin", ObjectReferral, ActionReferralDelete},
		{"role:admin", ObjectReferral, ActionReferralImport},
		{"role:admin", ObjectEarnings, ActionEarningsViewTeam},
		{"role:admin", ObjectPayCycle, ActionPayCycleManage},
		{"role:admin", ObjectIncentiveRule, ActionIncentiveRuleManage},
		{"role:admin", ObjectIncentive, ActionIncentiveGrant},
		{"role:admin", ObjectIncentive, ActionIncentiveDelete},
		{"role:admin", ObjectSettings, ActionSettingsUpdate},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
		{"role:admin", ObjectAgent, ActionAgentView},
		{"role:admin", ObjectAgent, ActionAgentCreate},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	// referral bonuses are logged by admins only
	revoked := [][]string{
		{"role:agent", ObjectReferral, ActionReferralUpdate},
		{"role:agent", ObjectReferral, ActionReferralDelete},
	}
	for _, policy := range revoked {
		if _, err := enforcer.RemovePolicy(policy); err != nil {
			return err
		}
	}

	// admins inherit every agent capability
	if _, err := enforcer.AddGroupingPolicy("role:admin", "role:agent"); err != nil {
		return err
	}
	return nil
}
