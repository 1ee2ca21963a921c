package checkout

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/obinna-okoro1/convozo/internal/intent"
	"github.com/obinna-okoro1/convozo/pkg/enums"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MessageCheckoutInput is a buyer's request to pay for a DM.
type MessageCheckoutInput struct {
	CreatorSlug     string
	SenderName      string
	SenderEmail     string
	SenderInstagram string
	MessageContent  string
	MessageType     string
	Price           int64
}

// CallCheckoutInput is a buyer's request to pay for a video call.
type CallCheckoutInput struct {
	CreatorSlug     string
	BookerName      string
	BookerEmail     string
	BookerInstagram string
	MessageContent  string
	Price           int64
}

// Session is the hosted checkout the buyer is redirected to.
type Session struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

func (in *MessageCheckoutInput) normalize() {
	in.CreatorSlug = strings.TrimSpace(in.CreatorSlug)
	in.SenderName = strings.TrimSpace(in.SenderName)
	in.SenderEmail = strings.TrimSpace(in.SenderEmail)
	in.SenderInstagram = strings.TrimSpace(in.SenderInstagram)
	in.MessageType = string(enums.NormalizeMessageType(in.MessageType))
}

func (in MessageCheckoutInput) validate(minimum int64) error {
	if in.CreatorSlug == "" {
		return fieldError("creator_slug", "is required")
	}
	if in.SenderName == "" {
		return fieldError("sender_name", "is required")
	}
	if err := validateFieldLength("sender_name", in.SenderName); err != nil {
		return err
	}
	if err := validateEmail("sender_email", in.SenderEmail); err != nil {
		return err
	}
	if err := validateFieldLength("sender_instagram", in.SenderInstagram); err != nil {
		return err
	}
	if err := validatePrice(in.Price, minimum); err != nil {
		return err
	}
	if strings.TrimSpace(in.MessageContent) == "" {
		return fieldError("message_content", "is required")
	}
	return validateLength("message_content", in.MessageContent)
}

func (in *CallCheckoutInput) normalize() {
	in.CreatorSlug = strings.TrimSpace(in.CreatorSlug)
	in.BookerName = strings.TrimSpace(in.BookerName)
	in.BookerEmail = strings.TrimSpace(in.BookerEmail)
	in.BookerInstagram = strings.TrimSpace(in.BookerInstagram)
}

func (in CallCheckoutInput) validate(minimum int64) error {
	if in.CreatorSlug == "" {
		return fieldError("creator_slug", "is required")
	}
	if in.BookerName == "" {
		return fieldError("booker_name", "is required")
	}
	if err := validateFieldLength("booker_name", in.BookerName); err != nil {
		return err
	}
	if err := validateEmail("booker_email", in.BookerEmail); err != nil {
		return err
	}
	if err := validatePrice(in.Price, minimum); err != nil {
		return err
	}
	if in.BookerInstagram == "" {
		return fieldError("booker_instagram", "is required")
	}
	if err := validateFieldLength("booker_instagram", in.BookerInstagram); err != nil {
		return err
	}
	return validateLength("message_content", in.MessageContent)
}

func validateEmail(field, value string) error {
	if value == "" {
		return fieldError(field, "is required")
	}
	if !emailPattern.MatchString(value) {
		return fieldError(field, "must be a valid email")
	}
	return validateFieldLength(field, value)
}

func validatePrice(price, minimum int64) error {
	if price <= 0 {
		return fieldError("price", "is required")
	}
	if price < minimum {
		return fieldError("price", fmt.Sprintf("must be at least %d", minimum))
	}
	return nil
}

func validateLength(field, value string) error {
	if utf8.RuneCountInString(value) > intent.MaxContentLength {
		return fieldError(field, fmt.Sprintf("must be at most %d characters", intent.MaxContentLength))
	}
	return nil
}

func validateFieldLength(field, value string) error {
	if utf8.RuneCountInString(value) > intent.MaxFieldLength {
		return fieldError(field, fmt.Sprintf("must be at most %d characters", intent.MaxFieldLength))
	}
	return nil
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, field+" "+message).
		WithDetails(map[string]string{field: message})
}
