package db

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var Module = fx.Module("db",
	fx.Provide(Open),
)

type OpenParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    Config
	Log       *zap.Logger
	Logger    gormlogger.Interface `optional:"true"`
	Tracer    trace.TracerProvider `optional:"true"`
}

// Open connects to the configured database and ties the pool to the fx lifecycle.
func Open(p OpenParams) (*gorm.DB, error) {
	dialect, err := Dialect(p.Config)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{}
	if p.Logger != nil {
		gormCfg.Logger = p.Logger
	}

	conn, err := gorm.Open(dialect, gormCfg)
	if err != nil {
		return nil, err
	}

	if p.Tracer != nil {
		plugin := otelgorm.NewPlugin(
			otelgorm.WithTracerProvider(p.Tracer),
			otelgorm.WithDBName(p.Config.Name),
		)
		if err := conn.Use(plugin); err != nil {
			return nil, err
		}
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if p.Config.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(p.Config.MaxIdleConn)
	}
	if p.Config.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(p.Config.MaxOpenConn)
	}
	if p.Config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(p.Config.ConnMaxLifetime)
	}
	if p.Config.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(p.Config.ConnMaxIdleTime)
	}

	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if p.Log != nil {
					p.Log.Info("closing database pool", zap.String("type", p.Config.Type))
				}
				return sqlDB.Close()
			},
		})
	}

	return conn, nil
}
