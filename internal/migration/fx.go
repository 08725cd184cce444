package migration

import (
	"context"
	"strings"

	"github.com/smallbiznis/salesdesk/internal/config"
	"github.com/smallbiznis/salesdesk/internal/seed"
	dbpkg "github.com/smallbiznis/salesdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		ctx := context.Background()
		switch strings.ToLower(strings.TrimSpace(cfg.DBType)) {
		case dbpkg.TypePostgres:
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		default:
			if !cfg.DBAutoMigrate {
				log.Warn("schema migration skipped", zap.String("db_type", cfg.DBType))
				break
			}
			if err := AutoMigrate(ctx, conn); err != nil {
				return err
			}
		}

		if cfg.BootstrapAdminEmail == "" {
			return nil
		}
		return seed.EnsureAdmin(ctx, conn, cfg.BootstrapAdminEmail)
	}),
)
