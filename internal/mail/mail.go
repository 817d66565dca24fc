// Package mail delivers rendered reports through Microsoft Graph or AWS SES.
package mail

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 30 * time.Second

// ErrNoRecipient is returned when a message has no To address.
var ErrNoRecipient = errors.New("mail: no recipient")

// Message is one HTML email.
type Message struct {
	To      string
	CC      []string
	Subject string
	HTML    string
}

// Sender delivers a message. Implementations make one attempt; callers
// bound it with the context.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ccList drops blank and duplicate cc addresses and the To address itself.
func ccList(msg Message) []string {
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(msg.To)): true}
	var out []string
	for _, c := range msg.CC {
		c = strings.TrimSpace(c)
		k := strings.ToLower(c)
		if c == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}
