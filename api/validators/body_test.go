package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
)

type replyBody struct {
	MessageID    string `json:"message_id" validate:"required,uuid"`
	ReplyContent string `json:"reply_content" validate:"required"`
}

func TestDecodeJSONBodyToleratesUnknownFields(t *testing.T) {
	body := `{"message_id":"7d3c9f61-2a8e-4a57-9c1b-1b2f1c0b6a11","reply_content":"thanks","client":"web"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dest replyBody
	if err := DecodeJSONBody(httptest.NewRecorder(), req, &dest); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dest.ReplyContent != "thanks" {
		t.Fatalf("unexpected body %+v", dest)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message_id":"nope"}`))

	var dest replyBody
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["message_id"] != "must be a valid id" || details["reply_content"] != "is required" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message_id":`))
	var dest replyBody
	if err := DecodeJSONBody(httptest.NewRecorder(), req, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryEnum(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?status=Handled", nil)
	got, err := ParseQueryEnum(req, "status", "all", "all", "handled", "unhandled")
	if err != nil || got != "handled" {
		t.Fatalf("expected handled, got %q %v", got, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/?status=archived", nil)
	if _, err := ParseQueryEnum(req, "status", "all", "all", "handled"); err == nil {
		t.Fatal("expected unsupported value to fail")
	}
}
