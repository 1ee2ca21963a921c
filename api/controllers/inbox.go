package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/obinna-okoro1/convozo/api/middleware"
	"github.com/obinna-okoro1/convozo/api/responses"
	"github.com/obinna-okoro1/convozo/api/validators"
	"github.com/obinna-okoro1/convozo/internal/messages"
	"github.com/obinna-okoro1/convozo/pkg/db/models"
	"github.com/obinna-okoro1/convozo/pkg/enums"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
	"github.com/obinna-okoro1/convozo/pkg/logger"
	"github.com/obinna-okoro1/convozo/pkg/pagination"
)

type replyRequest struct {
	MessageID    string `json:"message_id" validate:"required,uuid"`
	ReplyContent string `json:"reply_content" validate:"required"`
}

type messageResponse struct {
	ID              uuid.UUID  `json:"id"`
	SenderName      string     `json:"sender_name"`
	SenderEmail     string     `json:"sender_email"`
	SenderInstagram *string    `json:"sender_instagram,omitempty"`
	MessageContent  string     `json:"message_content"`
	MessageType     string     `json:"message_type"`
	AmountPaid      int64      `json:"amount_paid"`
	IsHandled       bool       `json:"is_handled"`
	ReplyContent    *string    `json:"reply_content,omitempty"`
	RepliedAt       *time.Time `json:"replied_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type callBookingResponse struct {
	ID              uuid.UUID  `json:"id"`
	BookerName      string     `json:"booker_name"`
	BookerEmail     string     `json:"booker_email"`
	BookerInstagram string     `json:"booker_instagram"`
	CallNotes       *string    `json:"call_notes,omitempty"`
	Duration        int        `json:"duration"`
	AmountPaid      int64      `json:"amount_paid"`
	Status          string     `json:"status"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type availabilitySlotResponse struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type pageResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// SendReplyEmail stores the creator's reply and emails it to the sender.
func SendReplyEmail(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "messages service unavailable"))
			return
		}

		var payload replyRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		messageID, err := uuid.Parse(payload.MessageID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid message_id"))
			return
		}

		if err := svc.Reply(r.Context(), messages.ReplyInput{
			MessageID:    messageID,
			ReplyContent: payload.ReplyContent,
			ActorUserID:  middleware.UserIDFromContext(r.Context()),
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"success": true, "message": "Reply sent successfully"})
	}
}

// CreatorMessages lists the caller's inbox, newest first.
func CreatorMessages(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "messages service unavailable"))
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryEnum(r, "status", string(enums.InboxFilterAll),
			string(enums.InboxFilterAll), string(enums.InboxFilterHandled), string(enums.InboxFilterUnhandled))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListMessages(r.Context(), middleware.UserIDFromContext(r.Context()), enums.InboxFilter(status), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := pageResponse[messageResponse]{Items: make([]messageResponse, 0, len(page.Items)), NextCursor: page.NextCursor}
		for _, m := range page.Items {
			out.Items = append(out.Items, newMessageResponse(m))
		}
		responses.WriteSuccess(w, out)
	}
}

// MarkMessageHandled flags a message as dealt with without replying.
func MarkMessageHandled(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "messages service unavailable"))
			return
		}

		messageID, err := uuid.Parse(chi.URLParam(r, "messageId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid message id"))
			return
		}

		if err := svc.MarkHandled(r.Context(), messageID, middleware.UserIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"success": true})
	}
}

func CreatorCallBookings(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "messages service unavailable"))
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListCallBookings(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := pageResponse[callBookingResponse]{Items: make([]callBookingResponse, 0, len(page.Items)), NextCursor: page.NextCursor}
		for _, b := range page.Items {
			out.Items = append(out.Items, newCallBookingResponse(b))
		}
		responses.WriteSuccess(w, out)
	}
}

// CreatorAvailability exposes a creator's active weekly call windows.
func CreatorAvailability(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "messages service unavailable"))
			return
		}

		slots, err := svc.Availability(r.Context(), strings.TrimSpace(chi.URLParam(r, "slug")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]availabilitySlotResponse, 0, len(slots))
		for _, s := range slots {
			out = append(out, availabilitySlotResponse{DayOfWeek: s.DayOfWeek, StartTime: s.StartTime, EndTime: s.EndTime})
		}
		responses.WriteSuccess(w, map[string]any{"slots": out})
	}
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}, nil
}

func newMessageResponse(m models.Message) messageResponse {
	return messageResponse{
		ID:              m.ID,
		SenderName:      m.SenderName,
		SenderEmail:     m.SenderEmail,
		SenderInstagram: m.SenderInstagram,
		MessageContent:  m.MessageContent,
		MessageType:     string(m.MessageType),
		AmountPaid:      m.AmountPaid,
		IsHandled:       m.IsHandled,
		ReplyContent:    m.ReplyContent,
		RepliedAt:       m.RepliedAt,
		CreatedAt:       m.CreatedAt,
	}
}

func newCallBookingResponse(b models.CallBooking) callBookingResponse {
	return callBookingResponse{
		ID:              b.ID,
		BookerName:      b.BookerName,
		BookerEmail:     b.BookerEmail,
		BookerInstagram: b.BookerInstagram,
		CallNotes:       b.CallNotes,
		Duration:        b.Duration,
		AmountPaid:      b.AmountPaid,
		Status:          string(b.Status),
		ScheduledAt:     b.ScheduledAt,
		CreatedAt:       b.CreatedAt,
	}
}
