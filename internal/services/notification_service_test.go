package services

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Send(ctx context.Context, phone, instanceID, text string) error {
	args := m.Called(ctx, phone, instanceID, text)
	return args.Error(0)
}

func seedTemplate(st *store.MemoryStore, notificationType, body string) {
	st.Seed(store.KindMessageTemplates, store.Record{
		"id": "tpl-" + notificationType, "tenant_id": "t1", "type": notificationType, "body": body,
	})
}

func TestNotificationDispatchOverdue(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	seedTemplate(st, models.NotificationOverdue,
		`Olá {{guardian_name|default:"responsável"}}, a mensalidade de {{member_name}} venceu em {{due_date}}. {{school_name}}`)

	gw := new(mockGateway)
	gw.On("Send", mock.Anything, "5511987654321", "azul",
		"Olá responsável, a mensalidade de Ana venceu em 10/03/2026. Escola Azul").Return(nil).Once()

	tx := models.Transaction{
		BaseModel: models.BaseModel{ID: "x1"}, MemberID: "m1", MemberName: "Ana",
		Amount: decimal.NewFromInt(150), DueDate: date(2026, time.March, 10), CompetenceDate: "março/2026",
	}
	report, err := NewNotificationService(st, gw).Dispatch(context.Background(), "t1", models.NotificationOverdue,
		[]NotificationTarget{TransactionTarget(tx, nil)})

	require.NoError(t, err)
	assert.Equal(t, DispatchReport{Type: models.NotificationOverdue, Attempted: 1, Sent: 1}, report)
	gw.AssertExpectations(t)
}

func TestNotificationDispatchLeadWithoutPhone(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	seedTemplate(st, models.NotificationTrial, "Olá {{name}}")

	gw := new(mockGateway)
	lead := models.Lead{BaseModel: models.BaseModel{ID: "l1"}, Name: "Sem Telefone", Status: models.LeadStatusTrialScheduled}

	report, err := NewNotificationService(st, gw).Dispatch(context.Background(), "t1", models.NotificationTrial,
		[]NotificationTarget{LeadTarget(lead)})

	require.NoError(t, err)
	assert.Equal(t, 0, report.Attempted)
	assert.Equal(t, 1, report.Skipped)
	gw.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationDispatchTrialDefaults(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	seedTemplate(st, models.NotificationTrial,
		`Olá {{name}}! Aula experimental em {{trial_date}} às {{trial_time|default:"horário a combinar"}}.`)

	gw := new(mockGateway)
	gw.On("Send", mock.Anything, "5511912345678", "azul",
		"Olá Pedro! Aula experimental em 10/03/2026 às horário a combinar.").Return(nil).Once()

	lead := models.Lead{
		BaseModel: models.BaseModel{ID: "l1"}, Name: "Pedro", Phone: "+55 (11) 91234-5678",
		Status: models.LeadStatusTrialScheduled, TrialDate: ptrTime(date(2026, time.March, 10)),
	}
	report, err := NewNotificationService(st, gw).Dispatch(context.Background(), "t1", models.NotificationTrial,
		[]NotificationTarget{LeadTarget(lead)})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	gw.AssertExpectations(t)
}

func TestNotificationDispatchMissingTemplate(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	seedTemplate(st, models.NotificationOverdue, "   ")

	gw := new(mockGateway)
	tx := models.Transaction{BaseModel: models.BaseModel{ID: "x1"}, MemberID: "m1"}

	report, err := NewNotificationService(st, gw).Dispatch(context.Background(), "t1", models.NotificationOverdue,
		[]NotificationTarget{TransactionTarget(tx, nil)})

	assert.True(t, errors.IsConfiguration(err))
	assert.Zero(t, report.Attempted)
	gw.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationDispatchUnknownType(t *testing.T) {
	_, err := NewNotificationService(store.NewMemoryStore(), new(mockGateway)).
		Dispatch(context.Background(), "t1", "birthday", nil)

	assert.True(t, errors.IsValidation(err))
}

func TestNotificationDispatchContinuesAfterGatewayFailure(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	st.Seed(store.KindMembers, store.Record{"id": "m4", "tenant_id": "t1", "name": "Duda", "status": "active", "guardian_phone": "21999990000"})
	seedTemplate(st, models.NotificationExpiry5Days, "{{member_name}} vence em {{due_date}}")

	gw := new(mockGateway)
	gw.On("Send", mock.Anything, "5511987654321", "azul", mock.Anything).Return(stderrors.New("timeout")).Once()
	gw.On("Send", mock.Anything, "5521999990000", "azul", mock.Anything).Return(nil).Once()

	targets := []NotificationTarget{
		TransactionTarget(models.Transaction{BaseModel: models.BaseModel{ID: "x1"}, MemberID: "m1", DueDate: date(2026, time.March, 10)}, nil),
		TransactionTarget(models.Transaction{BaseModel: models.BaseModel{ID: "x3"}, MemberID: "m4", DueDate: date(2026, time.March, 10)}, nil),
		TransactionTarget(models.Transaction{BaseModel: models.BaseModel{ID: "x4"}, MemberID: "ghost"}, nil),
	}
	report, err := NewNotificationService(st, gw).Dispatch(context.Background(), "t1", models.NotificationExpiry5Days, targets)

	require.NoError(t, err)
	assert.Equal(t, DispatchReport{Type: models.NotificationExpiry5Days, Attempted: 2, Sent: 1, Failed: 1, Skipped: 1}, report)
	assert.True(t, report.ShouldNotify())
	assert.Contains(t, report.Notice(), "1")
	gw.AssertExpectations(t)
}

func TestDispatchReportNotice(t *testing.T) {
	tests := []struct {
		name   string
		report DispatchReport
		notify bool
	}{
		{name: "nothing sent", report: DispatchReport{}, notify: false},
		{name: "single send is silent", report: DispatchReport{Attempted: 1, Sent: 1}, notify: false},
		{name: "bulk send", report: DispatchReport{Attempted: 3, Sent: 3}, notify: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notify, tt.report.ShouldNotify())
			assert.Equal(t, tt.notify, tt.report.Notice() != "")
		})
	}
}

func TestSelectTargets(t *testing.T) {
	now := date(2026, time.March, 5)
	txs := []models.Transaction{
		{BaseModel: models.BaseModel{ID: "today"}, MemberID: "m1", Status: models.TransactionStatusPending, DueDate: date(2026, time.March, 5)},
		{BaseModel: models.BaseModel{ID: "edge"}, MemberID: "m1", Status: models.TransactionStatusPending, DueDate: date(2026, time.March, 10)},
		{BaseModel: models.BaseModel{ID: "far"}, MemberID: "m1", Status: models.TransactionStatusPending, DueDate: date(2026, time.March, 11)},
		{BaseModel: models.BaseModel{ID: "late"}, MemberID: "m1", Status: models.TransactionStatusPending, DueDate: date(2026, time.March, 4)},
		{BaseModel: models.BaseModel{ID: "paid"}, MemberID: "m1", Status: models.TransactionStatusPaid, DueDate: date(2026, time.March, 6)},
	}
	snap := &Snapshot{
		Scope:        ScopeTenant,
		Members:      []models.Member{{BaseModel: models.BaseModel{ID: "m1"}, Name: "Ana"}},
		Transactions: WithDerivedStatuses(txs, now),
		SyncedAt:     now,
	}

	ids := func(targets []NotificationTarget) []string {
		out := make([]string, 0, len(targets))
		for _, target := range targets {
			out = append(out, target.Transaction.ID)
			assert.NotNil(t, target.Member)
		}
		return out
	}

	assert.Equal(t, []string{"late"}, ids(SelectOverdue(snap)))
	assert.Equal(t, []string{"today", "edge"}, ids(SelectExpiring(snap, ExpiryWindowDays)))
	assert.Equal(t, []string{"far", "paid"}, ids(SelectByIDs(snap, []string{"far", "paid", "missing"})))
	assert.Nil(t, SelectOverdue(nil))
}

func TestNotificationIntentDispatchOverdue(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	seedTemplate(st, models.NotificationOverdue, "{{member_name}}: {{amount}}")

	gw := new(mockGateway)
	gw.On("Send", mock.Anything, "5511987654321", "azul", mock.Anything).Return(nil).Once()

	syncSvc, _ := newTestSync(st, date(2026, time.March, 11))
	svc := NewNotificationIntentService(st, syncSvc, NewNotificationService(st, gw))

	result, err := svc.Dispatch(context.Background(), tenantAdmin("t1"), DispatchRequest{Type: models.NotificationOverdue})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Report.Sent)
	assert.Empty(t, result.Notice)
	require.NotNil(t, result.Snapshot)
	gw.AssertExpectations(t)
}

func TestNotificationIntentRejectsUnknownType(t *testing.T) {
	st := store.NewMemoryStore()
	syncSvc, _ := newTestSync(st, date(2026, time.March, 11))
	svc := NewNotificationIntentService(st, syncSvc, NewNotificationService(st, new(mockGateway)))

	_, err := svc.Dispatch(context.Background(), tenantAdmin("t1"), DispatchRequest{Type: "birthday"})
	assert.True(t, errors.IsValidation(err))
}
