package checkout

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupJournalDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.Run(context.Background(), sqlDB, migrate.Dialect("sqlite"), "", "up"))
	return conn
}

func TestGormJournalRecordsAttemptLifecycle(t *testing.T) {
	ctx := context.Background()
	conn := setupJournalDB(t)
	journal, err := NewJournal(conn)
	require.NoError(t, err)

	attempt := &models.CheckoutAttempt{
		SessionID:     "s1",
		State:         enums.CheckoutStateOrderCreating,
		ItemCount:     2,
		Subtotal:      decimal.NewFromInt(200),
		ShippingTotal: decimal.NewFromInt(50),
		GrandTotal:    decimal.NewFromInt(250),
	}
	require.NoError(t, journal.StartAttempt(ctx, attempt))
	require.NotEqual(t, uuid.Nil, attempt.ID)

	orderID := "9001"
	attempt.State = enums.CheckoutStateOrderCreated
	attempt.OrderID = &orderID
	attempt.OrderNumber = &orderID
	require.NoError(t, journal.UpdateAttempt(ctx, attempt))

	attempts, err := journal.AttemptsForSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, enums.CheckoutStateOrderCreated, attempts[0].State)
	require.NotNil(t, attempts[0].OrderID)
	assert.Equal(t, "9001", *attempts[0].OrderID)
	assert.True(t, attempts[0].GrandTotal.Equal(decimal.NewFromInt(250)))

	attemptID := attempt.ID
	require.NoError(t, journal.RecordPaymentRequest(ctx, &models.PaymentRequest{
		AttemptID:  &attemptID,
		OrderID:    orderID,
		PaymentRef: "pay-1",
		Amount:     decimal.NewFromInt(250),
		Fields:     `[{"name":"amount","value":"250.00"}]`,
		Signature:  "abc",
	}))
	err = journal.RecordPaymentRequest(ctx, &models.PaymentRequest{
		OrderID: orderID, PaymentRef: "pay-1", Amount: decimal.NewFromInt(250), Fields: "[]", Signature: "abc",
	})
	require.Error(t, err, "payment_ref must be unique")
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	loaded, err := journal.Attempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, "s1", loaded.SessionID)

	_, err = journal.Attempt(ctx, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	err = journal.UpdateAttempt(ctx, &models.CheckoutAttempt{ID: uuid.New(), State: enums.CheckoutStateFailed})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	requests, err := journal.PaymentRequestsForOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "pay-1", requests[0].PaymentRef)

	status := "COMPLETE"
	require.NoError(t, journal.RecordCallback(ctx, &models.PaymentCallback{
		Kind:    enums.CallbackKindNotify,
		OrderID: &orderID,
		Status:  &status,
		Valid:   true,
		Payload: "payment_status=COMPLETE",
	}))
	callbacks, err := journal.CallbacksForOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, callbacks, 1)
	assert.Equal(t, enums.CallbackKindNotify, callbacks[0].Kind)
	assert.True(t, callbacks[0].Valid)
}

func TestOrchestratorWritesGormJournal(t *testing.T) {
	ctx := context.Background()
	conn := setupJournalDB(t)
	journal, err := NewJournal(conn)
	require.NoError(t, err)

	o := newOrchestrator(t, &stubBackend{}, &stubGateway{}, journal, nil)
	_, err = o.CreateOrder(ctx, lineItems(), validForm(), nil)
	require.NoError(t, err)
	_, err = o.ProcessPayment(ctx, PaymentInput{})
	require.NoError(t, err)

	attempts, err := journal.AttemptsForSession(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, enums.CheckoutStatePaymentRedirected, attempts[0].State)

	requests, err := journal.PaymentRequestsForOrder(ctx, "501")
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.NotNil(t, requests[0].AttemptID)
	assert.Equal(t, attempts[0].ID, *requests[0].AttemptID)
}

func TestNewJournalRequiresDB(t *testing.T) {
	_, err := NewJournal(nil)
	require.Error(t, err)
}
