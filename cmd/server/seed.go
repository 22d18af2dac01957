package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/config"
	"sportshub/pkg/logger"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// seedFile 种子数据文件
type seedFile struct {
	Templates    map[string]string `yaml:"templates"`
	Plans        []seedPlan        `yaml:"plans"`
	FeatureFlags []seedFlag        `yaml:"feature_flags"`
}

type seedPlan struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Price      string   `yaml:"price"`
	MaxMembers int      `yaml:"max_members"`
	Features   []string `yaml:"features"`
}

type seedFlag struct {
	Key         string `yaml:"key"`
	Enabled     bool   `yaml:"enabled"`
	Description string `yaml:"description"`
}

// loadSeedFile 读取种子文件，文件不存在时返回空内容
func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			logger.GetLogger().Warnf("种子文件 %s 不存在，跳过套餐和模板初始化", path)
			return &seedFile{}, nil
		}
		return nil, err
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("解析种子文件失败: %v", err)
	}
	for notificationType := range file.Templates {
		if !models.IsValidNotificationType(notificationType) {
			return nil, fmt.Errorf("种子文件包含未知的模板类型: %s", notificationType)
		}
	}
	return &file, nil
}

// seedData 初始化种子数据，已存在的记录跳过
func seedData(ctx context.Context, st store.Store, cfg *config.Config, file *seedFile) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	// 1. 套餐目录
	if err := seedPlans(ctx, st, file.Plans); err != nil {
		return fmt.Errorf("初始化套餐失败: %v", err)
	}

	// 2. 功能开关
	if err := seedFeatureFlags(ctx, st, file.FeatureFlags); err != nil {
		return fmt.Errorf("初始化功能开关失败: %v", err)
	}

	// 3. 平台管理员
	if err := createDefaultAdmin(ctx, st, cfg.Seed); err != nil {
		return fmt.Errorf("创建默认管理员失败: %v", err)
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

func seedPlans(ctx context.Context, st store.Store, plans []seedPlan) error {
	for _, p := range plans {
		exists, err := recordExists(ctx, st, store.KindPlans, "id", p.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return fmt.Errorf("套餐 %s 价格格式错误: %v", p.ID, err)
		}
		if _, err := st.Insert(ctx, store.KindPlans, "", store.Record{
			"id":          p.ID,
			"name":        p.Name,
			"price":       price,
			"max_members": p.MaxMembers,
			"features":    pq.StringArray(p.Features),
		}); err != nil {
			return err
		}
		logger.GetLogger().Infof("套餐 %s 创建成功", p.Name)
	}
	return nil
}

func seedFeatureFlags(ctx context.Context, st store.Store, flags []seedFlag) error {
	for _, f := range flags {
		exists, err := recordExists(ctx, st, store.KindFeatureFlags, "key", f.Key)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := st.Insert(ctx, store.KindFeatureFlags, "", store.Record{
			"key":         f.Key,
			"enabled":     f.Enabled,
			"description": f.Description,
		}); err != nil {
			return err
		}
	}
	return nil
}

// createDefaultAdmin 创建默认平台管理员
func createDefaultAdmin(ctx context.Context, st store.Store, seed config.SeedConfig) error {
	exists, err := recordExists(ctx, st, store.KindUsers, "username", seed.AdminUsername)
	if err != nil {
		return err
	}
	if exists {
		logger.GetLogger().Info("默认管理员已存在，跳过创建")
		return nil
	}

	admin := &models.User{
		Username: seed.AdminUsername,
		Name:     "Administrador",
		Role:     models.RolePlatformAdmin,
		Status:   models.UserStatusActive,
	}
	if err := admin.SetPassword(seed.AdminPassword); err != nil {
		return err
	}

	if _, err := st.Insert(ctx, store.KindUsers, "", store.Record{
		"username":      admin.Username,
		"password_hash": admin.PasswordHash,
		"name":          admin.Name,
		"role":          admin.Role,
		"status":        admin.Status,
	}); err != nil {
		return err
	}

	logger.GetLogger().Warnf("默认管理员 %s 创建成功，请尽快修改密码", seed.AdminUsername)
	return nil
}

func recordExists(ctx context.Context, st store.Store, kind store.Kind, column, value string) (bool, error) {
	rows, err := st.Read(ctx, store.Query{
		Kind:    kind,
		Filters: map[string]interface{}{column: value},
	})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}
