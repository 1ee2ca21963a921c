// Package fulfillment turns a confirmed checkout session into exactly one
// purchased artifact plus its ledger row.
package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/obinna-okoro1/convozo/internal/intent"
	"github.com/obinna-okoro1/convozo/internal/ledger"
	"github.com/obinna-okoro1/convozo/internal/messages"
	"github.com/obinna-okoro1/convozo/pkg/db"
	"github.com/obinna-okoro1/convozo/pkg/db/models"
	"github.com/obinna-okoro1/convozo/pkg/enums"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
	"github.com/obinna-okoro1/convozo/pkg/logger"
)

// Outcome describes what happened to one session.
type Outcome string

const (
	OutcomeFulfilled        Outcome = "fulfilled"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	// OutcomeAwaitingPayment is a completed session whose funds have not
	// cleared yet. It is fulfilled by the async success event.
	OutcomeAwaitingPayment Outcome = "awaiting_payment"
)

// Result reports the rows touched for a session.
type Result struct {
	Outcome       Outcome
	Kind          enums.PurchaseKind
	MessageID     *uuid.UUID
	CallBookingID *uuid.UUID
	PaymentID     *uuid.UUID
}

type artifactStore interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	CreateCallBooking(ctx context.Context, booking *models.CallBooking) error
	FindCallBookingBySessionID(ctx context.Context, sessionID string) (*models.CallBooking, error)
}

type creatorLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Creator, error)
}

type fulfillmentMetrics interface {
	ObserveFulfillment(kind, outcome string, amount int64)
}

type ServiceParams struct {
	TxRunner db.TxRunner
	Messages *messages.Repository
	Ledger   ledger.Service
	Creators creatorLookup
	Metrics  fulfillmentMetrics
	Logger   *logger.Logger
}

// Service is safe to call any number of times for the same session.
type Service struct {
	tx       db.TxRunner
	ledger   ledger.Service
	creators creatorLookup
	metrics  fulfillmentMetrics
	logg     *logger.Logger

	artifacts     artifactStore
	artifactsInTx func(tx *gorm.DB) artifactStore
}

func NewService(params ServiceParams) (*Service, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Messages == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "message repository required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.Creators == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "creator repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	repo := params.Messages
	return &Service{
		tx:        params.TxRunner,
		ledger:    params.Ledger,
		creators:  params.Creators,
		metrics:   params.Metrics,
		logg:      params.Logger,
		artifacts: repo,
		artifactsInTx: func(tx *gorm.DB) artifactStore {
			return repo.WithTx(tx)
		},
	}, nil
}

// Fulfill materializes the purchase carried by a paid checkout session. The
// charged amount always comes from the provider, never from metadata.
func (s *Service) Fulfill(ctx context.Context, cs *stripe.CheckoutSession) (*Result, error) {
	if cs == nil || strings.TrimSpace(cs.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id is required")
	}
	ctx = s.logg.WithField(ctx, "checkout_session_id", cs.ID)

	if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		s.logg.Info(s.logg.WithField(ctx, "payment_status", string(cs.PaymentStatus)), "checkout session not paid yet")
		return &Result{Outcome: OutcomeAwaitingPayment}, nil
	}

	purchase, err := intent.Decode(cs.Metadata)
	if err != nil {
		s.logg.Error(ctx, "checkout session metadata rejected", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout metadata")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"creator_id":    purchase.Creator().String(),
		"purchase_kind": purchase.Kind().String(),
	})

	if cs.AmountTotal <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session has no amount")
	}
	if cs.AmountTotal != purchase.Amount() {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"quoted_amount":    purchase.Amount(),
			"confirmed_amount": cs.AmountTotal,
		}), "confirmed amount differs from quoted price")
	}

	done, err := s.alreadyProcessed(ctx, cs.ID, purchase.Kind())
	if err != nil {
		return nil, err
	}
	if done {
		return s.skipped(ctx, purchase.Kind()), nil
	}

	creator, err := s.creators.FindByID(ctx, purchase.Creator())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load creator")
	}
	if creator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout metadata references an unknown creator")
	}

	result := &Result{Outcome: OutcomeFulfilled, Kind: purchase.Kind()}
	paymentIntentID := paymentIntentID(cs)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		store := s.artifactsInTx(tx)
		input := ledger.RecordPaymentInput{
			CreatorID:       creator.ID,
			SessionID:       cs.ID,
			PaymentIntentID: paymentIntentID,
			Amount:          cs.AmountTotal,
			BuyerEmail:      purchase.BuyerEmail(),
		}

		switch p := purchase.(type) {
		case intent.MessagePurchase:
			message := newMessage(p, cs.AmountTotal)
			if err := store.CreateMessage(ctx, message); err != nil {
				return err
			}
			result.MessageID = &message.ID
			input.MessageID = &message.ID
		case intent.CallBookingPurchase:
			booking := newCallBooking(p, cs.ID, paymentIntentID, cs.AmountTotal)
			if err := store.CreateCallBooking(ctx, booking); err != nil {
				return err
			}
			result.CallBookingID = &booking.ID
			input.CallBookingID = &booking.ID
		default:
			return fmt.Errorf("unsupported purchase %T", purchase)
		}

		payment, err := s.ledger.WithTx(tx).RecordPayment(ctx, input)
		if err != nil {
			return err
		}
		result.PaymentID = &payment.ID
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			s.logg.Info(ctx, "concurrent delivery already fulfilled session")
			return s.skipped(ctx, purchase.Kind()), nil
		}
		s.logg.Error(ctx, "fulfillment transaction failed", err)
		if s.metrics != nil {
			s.metrics.ObserveFulfillment(purchase.Kind().String(), "failed", 0)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fulfill checkout session")
	}

	if s.metrics != nil {
		s.metrics.ObserveFulfillment(purchase.Kind().String(), string(OutcomeFulfilled), cs.AmountTotal)
	}
	s.logg.Info(ctx, "checkout session fulfilled")
	return result, nil
}

func (s *Service) alreadyProcessed(ctx context.Context, sessionID string, kind enums.PurchaseKind) (bool, error) {
	recorded, err := s.ledger.IsRecorded(ctx, sessionID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment ledger")
	}
	if recorded || kind != enums.PurchaseKindCallBooking {
		return recorded, nil
	}
	// Bookings carry their own session fence.
	booking, err := s.artifacts.FindCallBookingBySessionID(ctx, sessionID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check call bookings")
	}
	return booking != nil, nil
}

func (s *Service) skipped(ctx context.Context, kind enums.PurchaseKind) *Result {
	if s.metrics != nil {
		s.metrics.ObserveFulfillment(kind.String(), string(OutcomeAlreadyProcessed), 0)
	}
	s.logg.Info(ctx, "checkout session already processed")
	return &Result{Outcome: OutcomeAlreadyProcessed, Kind: kind}
}

func newMessage(p intent.MessagePurchase, amount int64) *models.Message {
	message := &models.Message{
		CreatorID:      p.CreatorID,
		SenderName:     p.SenderName,
		SenderEmail:    p.SenderEmail,
		MessageContent: p.Content,
		AmountPaid:     amount,
		MessageType:    p.MessageType,
	}
	if p.SenderInstagram != "" {
		ig := p.SenderInstagram
		message.SenderInstagram = &ig
	}
	return message
}

func newCallBooking(p intent.CallBookingPurchase, sessionID, paymentIntentID string, amount int64) *models.CallBooking {
	booking := &models.CallBooking{
		CreatorID:               p.CreatorID,
		BookerName:              p.BookerName,
		BookerEmail:             p.BookerEmail,
		BookerInstagram:         p.BookerInstagram,
		Duration:                p.DurationMinutes,
		AmountPaid:              amount,
		Status:                  enums.CallBookingStatusConfirmed,
		StripeCheckoutSessionID: sessionID,
	}
	if p.Notes != "" {
		notes := p.Notes
		booking.CallNotes = &notes
	}
	if paymentIntentID != "" {
		pi := paymentIntentID
		booking.StripePaymentIntentID = &pi
	}
	return booking
}

func paymentIntentID(cs *stripe.CheckoutSession) string {
	if cs.PaymentIntent == nil {
		return ""
	}
	return cs.PaymentIntent.ID
}

// IsAlreadyProcessed reports whether the session had been fulfilled before.
func (r *Result) IsAlreadyProcessed() bool {
	return r != nil && r.Outcome == OutcomeAlreadyProcessed
}
