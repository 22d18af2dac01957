package services

import (
	"time"

	"sportshub/internal/models"
)

// CivilDate 截取日历日期，保留年月日并归一到UTC零点
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DeriveStatus 计算账单在 now 时刻的有效状态
// 仅当存储状态为 pending 且到期日严格早于今天时返回 overdue，当天到期不算逾期
func DeriveStatus(tx models.Transaction, now time.Time) string {
	if tx.Status != models.TransactionStatusPending || tx.DueDate.IsZero() {
		return tx.Status
	}
	if CivilDate(tx.DueDate).Before(CivilDate(now)) {
		return models.TransactionStatusOverdue
	}
	return tx.Status
}

// WithDerivedStatuses 返回带推导状态的副本，原切片不变，结果也不会写回存储
func WithDerivedStatuses(txs []models.Transaction, now time.Time) []models.Transaction {
	out := make([]models.Transaction, len(txs))
	for i, tx := range txs {
		tx.Status = DeriveStatus(tx, now)
		out[i] = tx
	}
	return out
}

// memberPaymentStatus 按会员的账单推导展示用缴费状态
// 任一逾期 -> overdue；任一待缴 -> pending；有已缴 -> paid；没有账单时沿用缓存值
func memberPaymentStatus(cached string, txs []models.Transaction) string {
	if len(txs) == 0 {
		return cached
	}
	status := models.TransactionStatusPaid
	for _, tx := range txs {
		switch tx.Status {
		case models.TransactionStatusOverdue:
			return models.TransactionStatusOverdue
		case models.TransactionStatusPending:
			status = models.TransactionStatusPending
		}
	}
	return status
}
