package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obinna-okoro1/convozo/pkg/db/models"
	"github.com/obinna-okoro1/convozo/pkg/enums"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
	"github.com/obinna-okoro1/convozo/pkg/logger"
	"github.com/obinna-okoro1/convozo/pkg/mailer"
	"github.com/obinna-okoro1/convozo/pkg/pagination"
)

type messageStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	SaveReply(ctx context.Context, id uuid.UUID, reply string, repliedAt time.Time) error
	MarkHandled(ctx context.Context, id uuid.UUID) error
	ListByCreator(ctx context.Context, creatorID uuid.UUID, filter enums.InboxFilter, params pagination.Params) ([]models.Message, error)
	ListCallBookings(ctx context.Context, creatorID uuid.UUID, params pagination.Params) ([]models.CallBooking, error)
}

type creatorLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Creator, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Creator, error)
	FindActiveBySlug(ctx context.Context, slug string) (*models.Creator, error)
	ListAvailability(ctx context.Context, creatorID uuid.UUID) ([]models.AvailabilitySlot, error)
}

// ReplyInput is a creator's answer to a paid message.
type ReplyInput struct {
	MessageID    uuid.UUID
	ReplyContent string
	ActorUserID  uuid.UUID
}

// Service backs the creator inbox: replies, handled flags and listings.
type Service interface {
	Reply(ctx context.Context, input ReplyInput) error
	MarkHandled(ctx context.Context, messageID, actorUserID uuid.UUID) error
	ListMessages(ctx context.Context, actorUserID uuid.UUID, filter enums.InboxFilter, params pagination.Params) (pagination.Page[models.Message], error)
	ListCallBookings(ctx context.Context, actorUserID uuid.UUID, params pagination.Params) (pagination.Page[models.CallBooking], error)
	Availability(ctx context.Context, slug string) ([]models.AvailabilitySlot, error)
}

type ServiceParams struct {
	Messages messageStore
	Creators creatorLookup
	Mailer   mailer.Mailer
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	messages messageStore
	creators creatorLookup
	mailer   mailer.Mailer
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Messages == nil {
		return nil, fmt.Errorf("message repository required")
	}
	if params.Creators == nil {
		return nil, fmt.Errorf("creator repository required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		messages: params.Messages,
		creators: params.Creators,
		mailer:   params.Mailer,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Reply persists the reply first. Email delivery is best effort and never
// undoes the stored reply.
func (s *service) Reply(ctx context.Context, input ReplyInput) error {
	if input.MessageID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "message_id is required")
	}
	reply := strings.TrimSpace(input.ReplyContent)
	if reply == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reply_content is required")
	}

	message, creator, err := s.ownedMessage(ctx, input.MessageID, input.ActorUserID)
	if err != nil {
		return err
	}

	if err := s.messages.SaveReply(ctx, message.ID, reply, s.now().UTC()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save reply")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"message_id": message.ID.String(),
		"creator_id": creator.ID.String(),
	})
	email, err := mailer.RenderReply(message.SenderEmail, mailer.ReplyData{
		CreatorName:     creator.DisplayName,
		OriginalMessage: message.MessageContent,
		Reply:           reply,
	})
	if err != nil {
		s.logg.Error(ctx, "render reply email failed", err)
		return nil
	}
	email.ToName = message.SenderName
	if err := s.mailer.Send(ctx, email); err != nil {
		s.logg.Error(ctx, "send reply email failed", err)
		return nil
	}
	s.logg.Info(ctx, "reply email sent")
	return nil
}

func (s *service) MarkHandled(ctx context.Context, messageID, actorUserID uuid.UUID) error {
	message, _, err := s.ownedMessage(ctx, messageID, actorUserID)
	if err != nil {
		return err
	}
	if message.IsHandled {
		return nil
	}
	if err := s.messages.MarkHandled(ctx, message.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark message handled")
	}
	return nil
}

func (s *service) ListMessages(ctx context.Context, actorUserID uuid.UUID, filter enums.InboxFilter, params pagination.Params) (pagination.Page[models.Message], error) {
	creator, err := s.actorCreator(ctx, actorUserID)
	if err != nil {
		return pagination.Page[models.Message]{}, err
	}
	if !filter.IsValid() {
		return pagination.Page[models.Message]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if err := validateCursor(params); err != nil {
		return pagination.Page[models.Message]{}, err
	}
	rows, err := s.messages.ListByCreator(ctx, creator.ID, filter, params)
	if err != nil {
		return pagination.Page[models.Message]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	return pagination.BuildPage(rows, params.Limit, func(m models.Message) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	}), nil
}

func (s *service) ListCallBookings(ctx context.Context, actorUserID uuid.UUID, params pagination.Params) (pagination.Page[models.CallBooking], error) {
	creator, err := s.actorCreator(ctx, actorUserID)
	if err != nil {
		return pagination.Page[models.CallBooking]{}, err
	}
	if err := validateCursor(params); err != nil {
		return pagination.Page[models.CallBooking]{}, err
	}
	rows, err := s.messages.ListCallBookings(ctx, creator.ID, params)
	if err != nil {
		return pagination.Page[models.CallBooking]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list call bookings")
	}
	return pagination.BuildPage(rows, params.Limit, func(b models.CallBooking) pagination.Cursor {
		return pagination.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
	}), nil
}

func (s *service) Availability(ctx context.Context, slug string) ([]models.AvailabilitySlot, error) {
	creator, err := s.creators.FindActiveBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load creator")
	}
	if creator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "creator not found")
	}
	slots, err := s.creators.ListAvailability(ctx, creator.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load availability")
	}
	return slots, nil
}

func (s *service) ownedMessage(ctx context.Context, messageID, actorUserID uuid.UUID) (*models.Message, *models.Creator, error) {
	if actorUserID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	message, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load message")
	}
	if message == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
	}
	creator, err := s.creators.FindByID(ctx, message.CreatorID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load creator")
	}
	if creator == nil || creator.UserID != actorUserID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "message belongs to another creator")
	}
	return message, creator, nil
}

func (s *service) actorCreator(ctx context.Context, actorUserID uuid.UUID) (*models.Creator, error) {
	if actorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	creator, err := s.creators.FindByUserID(ctx, actorUserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load creator")
	}
	if creator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "creator profile not found")
	}
	return creator, nil
}

func validateCursor(params pagination.Params) error {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return nil
}
