package database

import (
	"sportshub/internal/models"
	"sportshub/pkg/logger"
)

// Migrate 执行数据库迁移
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := DB.AutoMigrate(
		&models.PlanDefinition{},
		&models.FeatureFlag{},
		&models.Tenant{},
		&models.User{},
		&models.TenantConfig{},
		&models.MessageTemplate{},
		&models.Member{},
		&models.Lead{},
		&models.BillingBatch{},
		&models.Transaction{},
	)
	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")
	return nil
}
