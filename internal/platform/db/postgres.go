package db

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/paygate/internal/models"
	cfgpkg "github.com/fatflowers/paygate/pkg/config"
	gormzap "github.com/fatflowers/paygate/pkg/gormlog"
	"github.com/fatflowers/paygate/pkg/tool"
	"github.com/fatflowers/paygate/pkg/types"
)

func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{Logger: gormzap.New(l)})
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	l.Infow("connected to postgres via DSN")
	return db, nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(SeedPaymentMethods),
	fx.Invoke(registerDBClose),
)

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.PaymentMethod{},
		&models.PaymentTransaction{},
		&models.WeChatPayment{},
		&models.RefundRequest{},
		&models.PaymentCallbackLog{},
		&models.Order{},
	); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	l.Infow("automigrate completed")
	return nil
}

// SeedPaymentMethods inserts the default payment method rows if missing.
// Existing rows keep their configured is_active flag.
func SeedPaymentMethods(l *zap.SugaredLogger, db *gorm.DB) error {
	defaults := []models.PaymentMethod{
		{ID: tool.GenerateUUIDV7(), Name: types.PaymentMethodWeChatPay, DisplayName: "WeChat Pay", IsActive: true, SortOrder: 1},
		{ID: tool.GenerateUUIDV7(), Name: types.PaymentMethodAlipay, DisplayName: "Alipay", IsActive: false, SortOrder: 2},
		{ID: tool.GenerateUUIDV7(), Name: types.PaymentMethodBankCard, DisplayName: "Bank Card", IsActive: false, SortOrder: 3},
		{ID: tool.GenerateUUIDV7(), Name: types.PaymentMethodBalance, DisplayName: "Account Balance", IsActive: false, SortOrder: 4},
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&defaults).Error
	if err != nil {
		l.Errorf("seed payment methods failed: %v", err)
		return err
	}
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
