// Package validator sanitizes inbound chat input and validates requests
// against the published OpenAPI document.
package validator

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxMessageLength bounds a user message, counted in runes
const DefaultMaxMessageLength = 2000

var (
	// ErrEmptyMessage is returned when nothing is left after sanitizing
	ErrEmptyMessage = errors.New("message cannot be empty")
	// ErrInvalidSessionID is returned for identifiers not in canonical UUID form
	ErrInvalidSessionID = errors.New("invalid session ID format")
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	sessionIDRe  = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// GuardedMessage is a sanitized user message
type GuardedMessage struct {
	Text      string
	Truncated bool
}

// GuardedRequest is a chat request that passed validation
type GuardedRequest struct {
	Message   GuardedMessage
	SessionID string
}

// ValidateMessage strips control characters (tab, newline and carriage return
// survive), trims surrounding whitespace and caps the result at maxLen runes.
// A non-positive maxLen falls back to DefaultMaxMessageLength.
func ValidateMessage(raw string, maxLen int) (GuardedMessage, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}

	text := strings.TrimSpace(controlChars.ReplaceAllString(raw, ""))
	if text == "" {
		return GuardedMessage{}, ErrEmptyMessage
	}

	if utf8.RuneCountInString(text) <= maxLen {
		return GuardedMessage{Text: text}, nil
	}

	runes := []rune(text)
	return GuardedMessage{Text: string(runes[:maxLen]), Truncated: true}, nil
}

// ValidateSessionID accepts the 36-character 8-4-4-4-12 hex form in any case
func ValidateSessionID(id string) error {
	if !sessionIDRe.MatchString(id) {
		return ErrInvalidSessionID
	}
	return nil
}

// NormalizeSessionID validates id and returns it lowercased, the form
// conversation ids are stored in
func NormalizeSessionID(id string) (string, error) {
	if err := ValidateSessionID(id); err != nil {
		return "", err
	}
	return strings.ToLower(id), nil
}

// ValidateChatRequest checks a send-message request and reports every problem
// found. An empty sessionID means the caller has no session yet.
func ValidateChatRequest(message, sessionID string, maxLen int) (GuardedRequest, []string) {
	var (
		req     GuardedRequest
		details []string
	)

	msg, err := ValidateMessage(message, maxLen)
	if err != nil {
		details = append(details, err.Error())
	} else {
		req.Message = msg
	}

	if sessionID != "" {
		id, err := NormalizeSessionID(sessionID)
		if err != nil {
			details = append(details, err.Error())
		} else {
			req.SessionID = id
		}
	}

	return req, details
}
