package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	cause := stderrors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: CodeSuccess},
		{name: "forbidden", err: ErrForbidden, want: CodeForbidden},
		{name: "wrapped forbidden", err: fmt.Errorf("switch tenant: %w", ErrForbidden), want: CodeForbidden},
		{name: "validation", err: NewValidation("name", "不能为空"), want: CodeInvalidParam},
		{name: "duplicate batch", err: &DuplicateBatchError{TenantID: "t1", Competence: "março/2026"}, want: CodeConflict},
		{name: "empty batch", err: &EmptyBatchError{TenantID: "t1", Competence: "março/2026"}, want: CodeUnprocessable},
		{name: "configuration", err: NewConfiguration("t1", "template.trial", "缺少模板"), want: CodeUnprocessable},
		{name: "store failure", err: NewStoreError("read members", cause), want: CodeBadGateway},
		{name: "gateway failure", err: NewGatewayError("send", cause), want: CodeBadGateway},
		{name: "unknown", err: cause, want: CodeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestCollaboratorErrorUnwrap(t *testing.T) {
	cause := stderrors.New("timeout")
	err := NewStoreError("insert transactions", cause)

	assert.True(t, IsCollaborator(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert transactions")
}

func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "month: 无法识别的月份", NewValidation("month", "无法识别的月份").Error())
	assert.Equal(t, "用户名或密码错误", NewValidation("", "用户名或密码错误").Error())
}

func TestTypePredicatesDoNotOverlap(t *testing.T) {
	empty := &EmptyBatchError{Competence: "abril/2026"}
	dup := &DuplicateBatchError{Competence: "abril/2026"}

	assert.True(t, IsEmptyBatch(empty))
	assert.False(t, IsDuplicateBatch(empty))
	assert.True(t, IsDuplicateBatch(dup))
	assert.False(t, IsEmptyBatch(dup))
	assert.False(t, IsValidation(dup))
}
