package locale

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DefaultLocale = "pt-BR"

// 各语言的日期版式，未配置的语言使用ISO格式
var dateLayouts = map[string]string{
	"pt-br": "02/01/2006",
	"pt":    "02/01/2006",
	"es":    "02/01/2006",
	"en-us": "01/02/2006",
	"en":    "01/02/2006",
}

func normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		tag = DefaultLocale
	}
	return strings.ToLower(strings.ReplaceAll(tag, "_", "-"))
}

// FormatDate 按租户语言格式化日期
func FormatDate(t time.Time, tag string) string {
	key := normalize(tag)
	if layout, ok := dateLayouts[key]; ok {
		return t.Format(layout)
	}
	if base, _, found := strings.Cut(key, "-"); found {
		if layout, ok := dateLayouts[base]; ok {
			return t.Format(layout)
		}
	}
	return t.Format("2006-01-02")
}

// FormatAmount 按租户语言格式化金额，固定两位小数
func FormatAmount(amount decimal.Decimal, tag string) string {
	lang, err := language.Parse(normalize(tag))
	if err != nil {
		return amount.StringFixed(2)
	}
	p := message.NewPrinter(lang)
	return p.Sprintf("%.2f", amount.Round(2).InexactFloat64())
}
