package errors

import (
	stderrors "errors"
	"fmt"
)

// ========== 错误码常量定义 ==========

// CodeSuccess 成功码
const (
	CodeSuccess = 200
)

// HTTP层错误码 (400-599)
const (
	CodeInvalidParam  = 400
	CodeUnauthorized  = 401
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeConflict      = 409
	CodeUnprocessable = 422
	CodeServerError   = 500
	CodeBadGateway    = 502
)

// ========== 业务错误类型 ==========

// ConfigurationError 租户配置缺失（如消息模板），不产生任何副作用
type ConfigurationError struct {
	TenantID string
	Key      string
	Message  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("配置错误[%s]: %s", e.Key, e.Message)
}

// ValidationError 写入前的参数校验失败
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CollaboratorError 外部协作方（存储、消息网关）调用失败
type CollaboratorError struct {
	Collaborator string // store 或 gateway
	Op           string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s 失败: %v", e.Collaborator, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// EmptyBatchError 生成账单时没有活跃会员
type EmptyBatchError struct {
	TenantID   string
	Competence string
}

func (e *EmptyBatchError) Error() string {
	return fmt.Sprintf("账期 %s 没有活跃会员，未生成任何账单", e.Competence)
}

// DuplicateBatchError 同一租户同一账期已生成过账单
type DuplicateBatchError struct {
	TenantID   string
	Competence string
}

func (e *DuplicateBatchError) Error() string {
	return fmt.Sprintf("账期 %s 的账单已生成", e.Competence)
}

// ErrForbidden 当前角色无权执行该操作
var ErrForbidden = stderrors.New("无权限执行该操作")

// ========== 构造方法 ==========

func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func NewConfiguration(tenantID, key, message string) error {
	return &ConfigurationError{TenantID: tenantID, Key: key, Message: message}
}

func NewStoreError(op string, err error) error {
	return &CollaboratorError{Collaborator: "store", Op: op, Err: err}
}

func NewGatewayError(op string, err error) error {
	return &CollaboratorError{Collaborator: "gateway", Op: op, Err: err}
}

// ========== 判断方法 ==========

func IsValidation(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return stderrors.As(err, &target)
}

func IsCollaborator(err error) bool {
	var target *CollaboratorError
	return stderrors.As(err, &target)
}

func IsEmptyBatch(err error) bool {
	var target *EmptyBatchError
	return stderrors.As(err, &target)
}

func IsDuplicateBatch(err error) bool {
	var target *DuplicateBatchError
	return stderrors.As(err, &target)
}

// CodeOf 错误对应的响应码
func CodeOf(err error) int {
	switch {
	case err == nil:
		return CodeSuccess
	case stderrors.Is(err, ErrForbidden):
		return CodeForbidden
	case IsValidation(err):
		return CodeInvalidParam
	case IsDuplicateBatch(err):
		return CodeConflict
	case IsEmptyBatch(err), IsConfiguration(err):
		return CodeUnprocessable
	case IsCollaborator(err):
		return CodeBadGateway
	default:
		return CodeServerError
	}
}
