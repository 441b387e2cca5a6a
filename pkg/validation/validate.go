// Package validation checks send intents before they reach the pipeline.
// Failures here are synchronous and reported only to the initiator; nothing
// is broadcast or persisted for an invalid intent.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"courier/pkg/models"
)

var (
	ErrEmptyBody   = errors.New("message body is empty")
	ErrSelfSend    = errors.New("sender and recipient are the same user")
	ErrMissingUser = errors.New("sender and recipient are required")
	ErrBadIdentity = errors.New(`identity contains reserved character "_"`)
)

// Rules holds configurable limits. Zero values disable the corresponding
// check.
type Rules struct {
	MaxBodyRunes   int
	MaxAttachments int
	MaxIdentityLen int
}

var rules Rules

// SetRules installs the process-wide validation limits.
func SetRules(r Rules) { rules = r }

// ValidateSend normalizes and validates a send intent in place. The body
// is trimmed before the non-emptiness check.
func ValidateSend(req *models.SendRequest) error {
	req.Sender = strings.TrimSpace(req.Sender)
	req.Recipient = strings.TrimSpace(req.Recipient)
	if req.Sender == "" || req.Recipient == "" {
		return ErrMissingUser
	}
	// the underscore is the thread-key separator; an identity carrying one
	// would make that key ambiguous and membership checks unsound
	if strings.Contains(req.Sender, "_") || strings.Contains(req.Recipient, "_") {
		return ErrBadIdentity
	}
	if req.Sender == req.Recipient {
		return ErrSelfSend
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		return ErrEmptyBody
	}
	if rules.MaxBodyRunes > 0 && utf8.RuneCountInString(req.Body) > rules.MaxBodyRunes {
		return fmt.Errorf("message body exceeds %d characters", rules.MaxBodyRunes)
	}
	if rules.MaxAttachments > 0 && len(req.Attachments) > rules.MaxAttachments {
		return fmt.Errorf("too many attachments (max %d)", rules.MaxAttachments)
	}
	if rules.MaxIdentityLen > 0 {
		if len(req.Sender) > rules.MaxIdentityLen || len(req.Recipient) > rules.MaxIdentityLen {
			return fmt.Errorf("identity exceeds %d bytes", rules.MaxIdentityLen)
		}
	}
	return nil
}
