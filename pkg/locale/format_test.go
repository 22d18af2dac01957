package locale

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	d := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		tag  string
		want string
	}{
		{tag: "pt-BR", want: "10/03/2026"},
		{tag: "pt_BR", want: "10/03/2026"},
		{tag: "", want: "10/03/2026"},
		{tag: "pt-PT", want: "10/03/2026"},
		{tag: "es-AR", want: "10/03/2026"},
		{tag: "en-US", want: "03/10/2026"},
		{tag: "de-DE", want: "2026-03-10"},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDate(d, tt.tag))
		})
	}
}

func TestFormatAmountKeepsTwoDecimals(t *testing.T) {
	assert.Equal(t, "150.00", FormatAmount(decimal.NewFromInt(150), "en-US"))
	assert.Equal(t, "12.50", FormatAmount(decimal.RequireFromString("12.5"), "en"))
	assert.Contains(t, FormatAmount(decimal.RequireFromString("150"), "pt-BR"), "150")
	assert.Equal(t, "7.25", FormatAmount(decimal.RequireFromString("7.25"), "!!"))
}
