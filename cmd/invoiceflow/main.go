package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/audit"
	"github.com/smallbiznis/invoiceflow/internal/authorization"
	"github.com/smallbiznis/invoiceflow/internal/clock"
	"github.com/smallbiznis/invoiceflow/internal/company"
	companydomain "github.com/smallbiznis/invoiceflow/internal/company/domain"
	"github.com/smallbiznis/invoiceflow/internal/config"
	"github.com/smallbiznis/invoiceflow/internal/freelancer"
	"github.com/smallbiznis/invoiceflow/internal/invoice"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"github.com/smallbiznis/invoiceflow/internal/migration"
	"github.com/smallbiznis/invoiceflow/internal/observability"
	"github.com/smallbiznis/invoiceflow/internal/product"
	"github.com/smallbiznis/invoiceflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		authorization.Module,
		audit.Module,

		// Functional Domains
		freelancer.Module,
		company.Module,
		product.Module,
		invoice.Module,

		fx.Invoke(CheckReadiness),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

// CheckReadiness warns when invoices cannot be confirmed yet because the
// payer identity has not been entered.
func CheckReadiness(lc fx.Lifecycle, conn *gorm.DB, companies companydomain.Repository, _ invoicedomain.Service, log *zap.Logger) {
	log = log.Named("invoiceflow")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			info, err := companies.Get(ctx, conn)
			if err != nil {
				return err
			}
			if info == nil {
				log.Warn("company info not set up; invoice confirmation will fail until it is")
				return nil
			}
			log.Info("invoicing core ready", zap.String("company", info.CompanyName))
			return nil
		},
	})
}
