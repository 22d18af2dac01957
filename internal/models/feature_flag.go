package models

// FeatureFlag 平台级功能开关，决定租户管理员可见的模块
type FeatureFlag struct {
	Key         string `json:"key" gorm:"primarykey;size:60"`
	Enabled     bool   `json:"enabled" gorm:"default:true"`
	Description string `json:"description" gorm:"size:200"`
}

// TableName 表名
func (f *FeatureFlag) TableName() string {
	return "feature_flags"
}
