package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	checkoutsvc "github.com/obinna-okoro1/convozo/internal/checkout"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
)

type stubCheckoutService struct {
	message *checkoutsvc.MessageCheckoutInput
	call    *checkoutsvc.CallCheckoutInput
	session *checkoutsvc.Session
	err     error
}

func (s *stubCheckoutService) CreateMessageCheckout(ctx context.Context, input checkoutsvc.MessageCheckoutInput) (*checkoutsvc.Session, error) {
	s.message = &input
	return s.session, s.err
}

func (s *stubCheckoutService) CreateCallCheckout(ctx context.Context, input checkoutsvc.CallCheckoutInput) (*checkoutsvc.Session, error) {
	s.call = &input
	return s.session, s.err
}

func TestCreateCheckoutSessionSuccess(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{session: &checkoutsvc.Session{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}}
	body := `{"creator_slug":"jane","sender_name":"Ann","sender_email":"ann@example.com","message_content":"hi","message_type":"message","price":1000}`
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/create-checkout-session", strings.NewReader(body))
	rec := httptest.NewRecorder()

	CreateCheckoutSession(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["sessionId"] != "cs_test_1" || resp["url"] == "" {
		t.Fatalf("unexpected response %v", resp)
	}
	if svc.message == nil || svc.message.Price != 1000 || svc.message.CreatorSlug != "jane" {
		t.Fatalf("input not forwarded: %+v", svc.message)
	}
}

func TestCreateCheckoutSessionRateLimited(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeRateLimit, "Too many requests. Please try again later.").WithRetryAfter(30 * time.Minute)}
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/create-checkout-session", strings.NewReader(`{"creator_slug":"jane"}`))
	rec := httptest.NewRecorder()

	CreateCheckoutSession(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1800" {
		t.Fatalf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
	}
}

func TestCreateCheckoutSessionRejectsBadJSON(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/create-checkout-session", strings.NewReader(`{"price":"ten"`))
	rec := httptest.NewRecorder()

	CreateCheckoutSession(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.message != nil {
		t.Fatal("service must not be called on malformed body")
	}
}

func TestCreateCallBookingSessionForwardsFields(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{session: &checkoutsvc.Session{ID: "cs_call", URL: "https://checkout"}}
	body := `{"creator_slug":"jane","booker_name":"Bo","booker_email":"bo@example.com","booker_instagram":"@bo","message_content":"topics","price":5000}`
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/create-call-booking-session", strings.NewReader(body))
	rec := httptest.NewRecorder()

	CreateCallBookingSession(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.call == nil || svc.call.BookerInstagram != "@bo" || svc.call.MessageContent != "topics" {
		t.Fatalf("input not forwarded: %+v", svc.call)
	}
}

func TestCreateCallBookingSessionFeatureDisabled(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeFeatureDisabled, "Video calls are not enabled for this creator")}
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/create-call-booking-session", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	CreateCallBookingSession(svc, nil).ServeHTTP(rec, req)

	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if rec.Code != http.StatusBadRequest || body.Code != string(pkgerrors.CodeFeatureDisabled) {
		t.Fatalf("unexpected response %d %+v", rec.Code, body)
	}
	if body.Error != "Video calls are not enabled for this creator" {
		t.Fatalf("expected service message, got %q", body.Error)
	}
}
