package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"sportshub/internal/store"
	"sportshub/pkg/errors"
	"sportshub/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator 与 gin 共用 binding 标签，服务层被非HTTP调用时也能校验
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.SetTagName("binding")
	})
	return validate
}

// validateRequest 校验请求结构体，只返回第一个错误
func validateRequest(req interface{}) error {
	err := getValidator().Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := toSnake(fe.Field())
		switch fe.Tag() {
		case "required":
			return errors.NewValidation(field, "不能为空")
		case "oneof":
			return errors.NewValidation(field, fmt.Sprintf("必须是 %s 之一", fe.Param()))
		case "min", "gte":
			return errors.NewValidation(field, fmt.Sprintf("不能小于 %s", fe.Param()))
		case "max", "lte":
			return errors.NewValidation(field, fmt.Sprintf("不能大于 %s", fe.Param()))
		default:
			return errors.NewValidation(field, fmt.Sprintf("校验失败(%s)", fe.Tag()))
		}
	}
	return errors.NewValidation("", err.Error())
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// intentBase 意图函数的公共部分：一次写入，然后整体重新同步
type intentBase struct {
	store store.Store
	sync  *SyncService
}

// scope 解析生效租户，没有租户时拒绝写入
func (b *intentBase) scope(session Session) (string, error) {
	tenantID, ok := session.ActiveTenant()
	if !ok {
		return "", errors.NewValidation("tenant", "请先选择租户")
	}
	return tenantID, nil
}

// resync 写入成功后重新同步
func (b *intentBase) resync(ctx context.Context, session Session) (*Snapshot, error) {
	return b.sync.Sync(ctx, session)
}

// writeFailed 写入失败：记录日志，快照保持上一次成功的状态
func (b *intentBase) writeFailed(session Session, op string, err error) (*Snapshot, error) {
	if stderrors.Is(err, store.ErrNotFound) {
		return b.sync.Latest(session), errors.NewValidation("id", "记录不存在")
	}
	logger.GetLogger().WithFields(logrus.Fields{
		"user_id": session.UserID,
		"op":      op,
	}).Errorf("写入失败: %v", err)
	return b.sync.Latest(session), errors.NewStoreError(op, err)
}
