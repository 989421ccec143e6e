package conversation

import "sync"

// Tag identifies what input a user is expected to send next
type Tag string

const (
	AwaitingUpload             Tag = "awaiting-upload"
	AwaitingCaption            Tag = "awaiting-caption"
	AwaitingDeleteTarget       Tag = "awaiting-delete-target"
	AwaitingGetFileID          Tag = "awaiting-get-file-id"
	AwaitingRedeemCode         Tag = "awaiting-redeem-code"
	AwaitingCodeItem           Tag = "awaiting-code-item"
	AwaitingCodeLimit          Tag = "awaiting-code-limit"
	AwaitingPoolItems          Tag = "awaiting-pool-items"
	AwaitingBanTarget          Tag = "awaiting-ban-target"
	AwaitingUnbanTarget        Tag = "awaiting-unban-target"
	AwaitingBroadcastText      Tag = "awaiting-broadcast-text"
	AwaitingForwardBroadcast   Tag = "awaiting-forward-broadcast"
	AwaitingDeleteTimerSeconds Tag = "awaiting-delete-timer-seconds"
	AwaitingSupportMessage     Tag = "awaiting-support-message"
	AwaitingSupportReply       Tag = "awaiting-support-reply"
	AwaitingAddForceSub        Tag = "awaiting-add-force-sub"
)

// State is the pending step of a user's multi-step flow.
// Data carries whatever the previous step staged, nil if nothing.
type State struct {
	Tag  Tag
	Data any
}

// Store maps users to their pending state. States never expire; a flow
// stays pending until it is overwritten or cleared.
type Store interface {
	Set(userID int64, tag Tag, data any)
	Get(userID int64) (State, bool)
	Data(userID int64) any
	Clear(userID int64)
}

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]State
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

// Set overwrites any prior state for the user
func (s *MemoryStore) Set(userID int64, tag Tag, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = State{Tag: tag, Data: data}
}

func (s *MemoryStore) Get(userID int64) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[userID]
	return st, ok
}

func (s *MemoryStore) Data(userID int64) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[userID].Data
}

func (s *MemoryStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}
