package enums

import (
	"fmt"
	"strings"
)

// MessageType labels a paid message as a plain DM or a call request.
type MessageType string

const (
	MessageTypeMessage MessageType = "message"
	MessageTypeCall    MessageType = "call"
)

var validMessageTypes = []MessageType{
	MessageTypeMessage,
	MessageTypeCall,
}

// String implements fmt.Stringer.
func (m MessageType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MessageType.
func (m MessageType) IsValid() bool {
	for _, candidate := range validMessageTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMessageType converts raw input into a MessageType.
func ParseMessageType(value string) (MessageType, error) {
	for _, candidate := range validMessageTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid message type %q", value)
}

// NormalizeMessageType maps anything that is not "call" to a plain message.
func NormalizeMessageType(value string) MessageType {
	if strings.EqualFold(strings.TrimSpace(value), string(MessageTypeCall)) {
		return MessageTypeCall
	}
	return MessageTypeMessage
}
