package gateway

import (
	"context"
	"errors"
	"fmt"

	"filebot/internal/models"
)

// ErrGateway marks every failure of a messaging platform call
var ErrGateway = errors.New("messaging gateway error")

// Error describes a failed platform call. errors.Is matches both ErrGateway
// and the underlying cause.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrGateway, e.Err}
}

// Markup is an optional keyboard attached to an outgoing message
type Markup any

// Gateway is the messaging platform as seen by the bot. Every call reports
// failure explicitly; the caller decides whether it is fatal.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string, markup Markup) (int, error)
	SendMedia(ctx context.Context, chatID int64, kind models.MediaKind, handle, caption string) (int, error)
	// CopyMessage copies without the forward header, replacing the caption when non-empty
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string) (int, error)
	ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	// IsMember performs a live membership query; channel is a numeric id or @username
	IsMember(ctx context.Context, channel string, userID int64) (bool, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
	Username() string
}
