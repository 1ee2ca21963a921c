// Package intent encodes a buyer's purchase into checkout session metadata and
// decodes it back when the payment is confirmed. Decoding fails closed: any
// missing or malformed field rejects the whole payload.
package intent

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/obinna-okoro1/convozo/pkg/enums"
)

const (
	SchemaVersion = "1"

	// MaxContentLength bounds message content and call notes, in characters.
	MaxContentLength = 1000

	// MaxFieldLength bounds buyer names, emails and handles, in characters.
	MaxFieldLength = 255

	// metadataValueLimit is the provider's per-value cap, in characters.
	metadataValueLimit = 500
)

const (
	keyVersion         = "intent_version"
	keyKind            = "kind"
	keyCreatorID       = "creator_id"
	keyPrice           = "price"
	keySenderName      = "sender_name"
	keySenderEmail     = "sender_email"
	keySenderInstagram = "sender_instagram"
	keyMessageType     = "message_type"
	keyMessageContent  = "message_content"
	keyBookerName      = "booker_name"
	keyBookerEmail     = "booker_email"
	keyBookerInstagram = "booker_instagram"
	keyCallNotes       = "call_notes"
	keyDuration        = "duration"
)

// ErrMalformed marks metadata that cannot be turned into a purchase.
var ErrMalformed = errors.New("malformed purchase metadata")

// Purchase is the tagged union of things a checkout can buy.
type Purchase interface {
	Kind() enums.PurchaseKind
	Creator() uuid.UUID
	// Amount is the price quoted at checkout, in minor units.
	Amount() int64
	BuyerEmail() string
	sealed()
}

// MessagePurchase is a paid DM.
type MessagePurchase struct {
	CreatorID       uuid.UUID
	SenderName      string
	SenderEmail     string
	SenderInstagram string
	Content         string
	MessageType     enums.MessageType
	Price           int64
}

func (MessagePurchase) Kind() enums.PurchaseKind { return enums.PurchaseKindMessage }
func (p MessagePurchase) Creator() uuid.UUID { return p.CreatorID }
func (p MessagePurchase) Amount() int64 { return p.Price }
func (p MessagePurchase) BuyerEmail() string { return p.SenderEmail }
func (MessagePurchase) sealed() {}

// CallBookingPurchase is a paid video call request.
type CallBookingPurchase struct {
	CreatorID       uuid.UUID
	BookerName      string
	BookerEmail     string
	BookerInstagram string
	Notes           string
	DurationMinutes int
	Price           int64
}

func (CallBookingPurchase) Kind() enums.PurchaseKind { return enums.PurchaseKindCallBooking }
func (p CallBookingPurchase) Creator() uuid.UUID { return p.CreatorID }
func (p CallBookingPurchase) Amount() int64 { return p.Price }
func (p CallBookingPurchase) BuyerEmail() string { return p.BookerEmail }
func (CallBookingPurchase) sealed() {}

// Encode flattens p into provider metadata. Long text is split across
// numbered keys to stay under the per-value limit.
func Encode(p Purchase) (map[string]string, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil purchase", ErrMalformed)
	}
	md := map[string]string{
		keyVersion:   SchemaVersion,
		keyKind:      string(p.Kind()),
		keyCreatorID: p.Creator().String(),
		keyPrice:     strconv.FormatInt(p.Amount(), 10),
	}

	switch v := p.(type) {
	case MessagePurchase:
		md[keySenderName] = v.SenderName
		md[keySenderEmail] = v.SenderEmail
		if v.SenderInstagram != "" {
			md[keySenderInstagram] = v.SenderInstagram
		}
		md[keyMessageType] = string(v.MessageType)
		putChunked(md, keyMessageContent, v.Content)
	case CallBookingPurchase:
		md[keyBookerName] = v.BookerName
		md[keyBookerEmail] = v.BookerEmail
		md[keyBookerInstagram] = v.BookerInstagram
		md[keyDuration] = strconv.Itoa(v.DurationMinutes)
		if v.Notes != "" {
			putChunked(md, keyCallNotes, v.Notes)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported purchase %T", ErrMalformed, p)
	}

	for key, value := range md {
		if n := utf8.RuneCountInString(value); n > metadataValueLimit {
			return nil, fmt.Errorf("%w: %s has %d characters, limit is %d", ErrMalformed, key, n, metadataValueLimit)
		}
	}
	if _, err := Decode(md); err != nil {
		return nil, err
	}
	return md, nil
}

// IsPurchase reports whether md was written by Encode. Sessions created
// outside this service carry other metadata and are not purchases.
func IsPurchase(md map[string]string) bool {
	_, ok := md[keyVersion]
	return ok
}

// Decode parses provider metadata back into a Purchase.
func Decode(md map[string]string) (Purchase, error) {
	if len(md) == 0 {
		return nil, fmt.Errorf("%w: metadata is empty", ErrMalformed)
	}
	if v := md[keyVersion]; v != SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported %s %q", ErrMalformed, keyVersion, v)
	}

	kind, err := enums.ParsePurchaseKind(md[keyKind])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	creatorID, err := uuid.Parse(md[keyCreatorID])
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a uuid", ErrMalformed, keyCreatorID)
	}
	price, err := parsePositiveInt(md, keyPrice)
	if err != nil {
		return nil, err
	}

	switch kind {
	case enums.PurchaseKindMessage:
		p := MessagePurchase{CreatorID: creatorID, Price: price, SenderInstagram: md[keySenderInstagram]}
		if p.SenderName, err = required(md, keySenderName); err != nil {
			return nil, err
		}
		if p.SenderEmail, err = required(md, keySenderEmail); err != nil {
			return nil, err
		}
		if p.MessageType, err = enums.ParseMessageType(md[keyMessageType]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if p.Content, err = getChunked(md, keyMessageContent); err != nil {
			return nil, err
		}
		if err := checkLength(keyMessageContent, p.Content, true); err != nil {
			return nil, err
		}
		return p, nil

	default:
		p := CallBookingPurchase{CreatorID: creatorID, Price: price}
		if p.BookerName, err = required(md, keyBookerName); err != nil {
			return nil, err
		}
		if p.BookerEmail, err = required(md, keyBookerEmail); err != nil {
			return nil, err
		}
		if p.BookerInstagram, err = required(md, keyBookerInstagram); err != nil {
			return nil, err
		}
		duration, err := parsePositiveInt(md, keyDuration)
		if err != nil {
			return nil, err
		}
		p.DurationMinutes = int(duration)
		if _, ok := md[keyCallNotes+"_parts"]; ok {
			if p.Notes, err = getChunked(md, keyCallNotes); err != nil {
				return nil, err
			}
		}
		if err := checkLength(keyCallNotes, p.Notes, false); err != nil {
			return nil, err
		}
		return p, nil
	}
}

func required(md map[string]string, key string) (string, error) {
	v := strings.TrimSpace(md[key])
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrMalformed, key)
	}
	return v, nil
}

func parsePositiveInt(md map[string]string, key string) (int64, error) {
	raw, err := required(md, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrMalformed, key, raw)
	}
	return n, nil
}

func checkLength(key, value string, requireNonEmpty bool) error {
	n := utf8.RuneCountInString(value)
	if requireNonEmpty && strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrMalformed, key)
	}
	if n > MaxContentLength {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrMalformed, key, MaxContentLength)
	}
	return nil
}

func putChunked(md map[string]string, key, value string) {
	parts := chunk(value, metadataValueLimit)
	md[key+"_parts"] = strconv.Itoa(len(parts))
	for i, part := range parts {
		md[fmt.Sprintf("%s_%d", key, i)] = part
	}
}

func getChunked(md map[string]string, key string) (string, error) {
	count, err := strconv.Atoi(md[key+"_parts"])
	if err != nil || count <= 0 || count > (MaxContentLength/metadataValueLimit)+1 {
		return "", fmt.Errorf("%w: %s_parts is invalid", ErrMalformed, key)
	}
	var b strings.Builder
	for i := 0; i < count; i++ {
		part, ok := md[fmt.Sprintf("%s_%d", key, i)]
		if !ok {
			return "", fmt.Errorf("%w: %s part %d missing", ErrMalformed, key, i)
		}
		b.WriteString(part)
	}
	return b.String(), nil
}

// chunk splits s into pieces of at most size runes, never splitting a rune.
func chunk(s string, size int) []string {
	if s == "" {
		return []string{""}
	}
	var parts []string
	runes := []rune(s)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
