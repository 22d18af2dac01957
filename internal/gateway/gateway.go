package gateway

import (
	"context"
	"strings"
	"unicode"
)

// Gateway 消息网关协作方：向手机号发送一条文本消息，不消费送达回执
type Gateway interface {
	Send(ctx context.Context, phone, instanceID, text string) error
}

// NormalizePhone 只保留数字；10/11位本地号码补巴西国家码55
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 || len(digits) == 11 {
		return "55" + digits
	}
	return digits
}
