package controllers

import (
	"net/http"

	"github.com/obinna-okoro1/convozo/api/responses"
	"github.com/obinna-okoro1/convozo/api/validators"
	checkoutsvc "github.com/obinna-okoro1/convozo/internal/checkout"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
	"github.com/obinna-okoro1/convozo/pkg/logger"
)

// Field presence and order are validated by the checkout service so the
// first failing field is reported consistently.
type messageCheckoutRequest struct {
	CreatorSlug     string `json:"creator_slug"`
	MessageContent  string `json:"message_content"`
	SenderName      string `json:"sender_name"`
	SenderEmail     string `json:"sender_email"`
	SenderInstagram string `json:"sender_instagram"`
	MessageType     string `json:"message_type"`
	Price           int64  `json:"price"`
}

type callCheckoutRequest struct {
	CreatorSlug     string `json:"creator_slug"`
	BookerName      string `json:"booker_name"`
	BookerEmail     string `json:"booker_email"`
	BookerInstagram string `json:"booker_instagram"`
	MessageContent  string `json:"message_content"`
	Price           int64  `json:"price"`
}

// CreateCheckoutSession starts a paid DM checkout for a public buyer.
func CreateCheckoutSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload messageCheckoutRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CreateMessageCheckout(r.Context(), checkoutsvc.MessageCheckoutInput{
			CreatorSlug:     payload.CreatorSlug,
			SenderName:      payload.SenderName,
			SenderEmail:     payload.SenderEmail,
			SenderInstagram: payload.SenderInstagram,
			MessageContent:  payload.MessageContent,
			MessageType:     payload.MessageType,
			Price:           payload.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// CreateCallBookingSession starts a paid video call checkout.
func CreateCallBookingSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload callCheckoutRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CreateCallCheckout(r.Context(), checkoutsvc.CallCheckoutInput{
			CreatorSlug:     payload.CreatorSlug,
			BookerName:      payload.BookerName,
			BookerEmail:     payload.BookerEmail,
			BookerInstagram: payload.BookerInstagram,
			MessageContent:  payload.MessageContent,
			Price:           payload.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}
