package checkout

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Journal records checkout attempts, payment requests and gateway callbacks.
type Journal interface {
	StartAttempt(ctx context.Context, attempt *models.CheckoutAttempt) error
	UpdateAttempt(ctx context.Context, attempt *models.CheckoutAttempt) error
	RecordPaymentRequest(ctx context.Context, req *models.PaymentRequest) error
	RecordCallback(ctx context.Context, cb *models.PaymentCallback) error
}

type GormJournal struct {
	db *gorm.DB
}

// NewJournal builds a journal backed by the provided DB.
func NewJournal(db *gorm.DB) (*GormJournal, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &GormJournal{db: db}, nil
}

// WithTx returns a journal bound to tx.
func (j *GormJournal) WithTx(tx *gorm.DB) *GormJournal {
	if tx == nil {
		return j
	}
	return &GormJournal{db: tx}
}

func (j *GormJournal) StartAttempt(ctx context.Context, attempt *models.CheckoutAttempt) error {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	return j.db.WithContext(ctx).Create(attempt).Error
}

// UpdateAttempt writes the mutable attempt columns. An unknown attempt maps to NOT_FOUND.
func (j *GormJournal) UpdateAttempt(ctx context.Context, attempt *models.CheckoutAttempt) error {
	res := j.db.WithContext(ctx).
		Model(&models.CheckoutAttempt{}).
		Where("id = ?", attempt.ID).
		Updates(map[string]any{
			"state":           attempt.State,
			"order_id":        attempt.OrderID,
			"order_number":    attempt.OrderNumber,
			"grand_total":     attempt.GrandTotal,
			"failure_code":    attempt.FailureCode,
			"failure_message": attempt.FailureMessage,
			"updated_at":      gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "checkout attempt not found").
			WithDetails(map[string]any{"attempt_id": attempt.ID.String()})
	}
	return nil
}

// Attempt loads one attempt by id.
func (j *GormJournal) Attempt(ctx context.Context, id uuid.UUID) (*models.CheckoutAttempt, error) {
	var attempt models.CheckoutAttempt
	err := j.db.WithContext(ctx).Where("id = ?", id).First(&attempt).Error
	if db.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout attempt not found")
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// RecordPaymentRequest stores a signed request. Reusing a payment reference
// maps to CONFLICT.
func (j *GormJournal) RecordPaymentRequest(ctx context.Context, req *models.PaymentRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	err := j.db.WithContext(ctx).Create(req).Error
	if db.IsUniqueViolation(err, "payment_ref") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment reference already recorded").
			WithDetails(map[string]any{"payment_ref": req.PaymentRef})
	}
	return err
}

func (j *GormJournal) RecordCallback(ctx context.Context, cb *models.PaymentCallback) error {
	if cb.ID == uuid.Nil {
		cb.ID = uuid.New()
	}
	return j.db.WithContext(ctx).Create(cb).Error
}

// AttemptsForSession lists a session's attempts, newest first.
func (j *GormJournal) AttemptsForSession(ctx context.Context, sessionID string) ([]models.CheckoutAttempt, error) {
	var attempts []models.CheckoutAttempt
	err := j.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// PaymentRequestsForOrder lists the signed requests issued for orderID in issue order.
func (j *GormJournal) PaymentRequestsForOrder(ctx context.Context, orderID string) ([]models.PaymentRequest, error) {
	var requests []models.PaymentRequest
	err := j.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&requests).Error
	return requests, err
}

// CallbacksForOrder lists the gateway callbacks received for orderID.
func (j *GormJournal) CallbacksForOrder(ctx context.Context, orderID string) ([]models.PaymentCallback, error) {
	var callbacks []models.PaymentCallback
	err := j.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&callbacks).Error
	return callbacks, err
}
