package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/obinna-okoro1/convozo/pkg/db/models"
	"github.com/obinna-okoro1/convozo/pkg/enums"
)

// Service records one immutable payment row per settled checkout session.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Payment, error)
	IsRecorded(ctx context.Context, sessionID string) (bool, error)
}

type service struct {
	repo       Repository
	feePercent decimal.Decimal
}

// RecordPaymentInput links a confirmed amount to exactly one artifact.
type RecordPaymentInput struct {
	CreatorID       uuid.UUID
	MessageID       *uuid.UUID
	CallBookingID   *uuid.UUID
	SessionID       string
	PaymentIntentID string
	Amount          int64
	BuyerEmail      string
}

// NewService wires a ledger service that splits amounts at feePercent.
func NewService(repo Repository, feePercent decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if _, err := SplitFee(0, feePercent); err != nil {
		return nil, err
	}
	return &service{repo: repo, feePercent: feePercent}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx), feePercent: s.feePercent}
}

func (s *service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Payment, error) {
	if input.CreatorID == uuid.Nil {
		return nil, fmt.Errorf("creator id is required")
	}
	if strings.TrimSpace(input.SessionID) == "" {
		return nil, fmt.Errorf("checkout session id is required")
	}
	if (input.MessageID == nil) == (input.CallBookingID == nil) {
		return nil, fmt.Errorf("payment must reference exactly one message or call booking")
	}

	split, err := SplitFee(input.Amount, s.feePercent)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		CreatorID:               input.CreatorID,
		MessageID:               input.MessageID,
		CallBookingID:           input.CallBookingID,
		StripeCheckoutSessionID: input.SessionID,
		Amount:                  split.Amount,
		PlatformFee:             split.PlatformFee,
		CreatorAmount:           split.CreatorAmount,
		Status:                  enums.PaymentStatusCompleted,
		SenderEmail:             input.BuyerEmail,
	}
	if input.PaymentIntentID != "" {
		pi := input.PaymentIntentID
		payment.StripePaymentIntentID = &pi
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) IsRecorded(ctx context.Context, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, fmt.Errorf("checkout session id is required")
	}
	payment, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return payment != nil, nil
}
