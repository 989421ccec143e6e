package stubs

import (
	"context"
	"errors"
	"sync"

	"filebot/internal/gateway"
	"filebot/internal/models"
)

// Sent is one outgoing call captured by Recorder
type Sent struct {
	Op         string
	ChatID     int64
	Text       string
	Kind       models.MediaKind
	Handle     string
	FromChatID int64
	MessageID  int
	Markup     gateway.Markup
}

// Recorder is an in-memory Gateway for tests. It records every call and
// fails calls for chats listed in FailChats.
type Recorder struct {
	mu        sync.Mutex
	nextID    int
	sent      []Sent
	deleted   []Sent
	members   map[string]map[int64]bool
	failChats map[int64]bool
	username  string
}

// NewRecorder creates a recorder for a bot with the given username
func NewRecorder(username string) *Recorder {
	return &Recorder{
		nextID:    100,
		members:   make(map[string]map[int64]bool),
		failChats: make(map[int64]bool),
		username:  username,
	}
}

// FailChat makes every call targeting chatID return a gateway error
func (r *Recorder) FailChat(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failChats[chatID] = true
}

// SetMember sets the membership answer for channel and user
func (r *Recorder) SetMember(channel string, userID int64, member bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[channel] == nil {
		r.members[channel] = make(map[int64]bool)
	}
	r.members[channel][userID] = member
}

// SentTo returns the calls delivered to chatID, in order
func (r *Recorder) SentTo(chatID int64) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, s := range r.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// Last returns the last call delivered to chatID
func (r *Recorder) Last(chatID int64) (Sent, bool) {
	sent := r.SentTo(chatID)
	if len(sent) == 0 {
		return Sent{}, false
	}
	return sent[len(sent)-1], true
}

// Deleted returns the delete calls made so far
func (r *Recorder) Deleted() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.deleted...)
}

func (r *Recorder) record(s Sent) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failChats[s.ChatID] {
		return 0, &gateway.Error{Op: s.Op, Err: errors.New("chat unavailable")}
	}
	r.nextID++
	s.MessageID = r.nextID
	r.sent = append(r.sent, s)
	return s.MessageID, nil
}

func (r *Recorder) SendText(ctx context.Context, chatID int64, text string, markup gateway.Markup) (int, error) {
	return r.record(Sent{Op: "send_text", ChatID: chatID, Text: text, Markup: markup})
}

func (r *Recorder) SendMedia(ctx context.Context, chatID int64, kind models.MediaKind, handle, caption string) (int, error) {
	return r.record(Sent{Op: "send_media", ChatID: chatID, Kind: kind, Handle: handle, Text: caption})
}

func (r *Recorder) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string) (int, error) {
	return r.record(Sent{Op: "copy_message", ChatID: toChatID, FromChatID: fromChatID, Text: caption})
}

func (r *Recorder) ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error) {
	return r.record(Sent{Op: "forward_message", ChatID: toChatID, FromChatID: fromChatID})
}

func (r *Recorder) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failChats[chatID] {
		return &gateway.Error{Op: "delete_message", Err: errors.New("chat unavailable")}
	}
	r.deleted = append(r.deleted, Sent{Op: "delete_message", ChatID: chatID, MessageID: messageID})
	return nil
}

func (r *Recorder) IsMember(ctx context.Context, channel string, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[channel][userID], nil
}

func (r *Recorder) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return nil
}

func (r *Recorder) Username() string {
	return r.username
}
