package stubs

import (
	"context"
	"sort"
	"sync"
	"time"

	"filebot/internal/models"
	"filebot/internal/storage"
)

// MockDB is an in-memory implementation of the Storage interface for testing.
// A single mutex makes every method atomic, mirroring the document store.
type MockDB struct {
	mu       sync.RWMutex
	users    map[int64]models.User
	files    map[int64]models.FileRecord
	codes    map[string]*models.RedeemCode
	counters map[string]int64
	config   models.BotConfig
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		users:    make(map[int64]models.User),
		files:    make(map[int64]models.FileRecord),
		codes:    make(map[string]*models.RedeemCode),
		counters: make(map[string]int64),
		config:   models.BotConfig{BotEnabled: true},
	}
}

// Initialize makes sure the file id counter exists
func (m *MockDB) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.counters[storage.FileSequence]; !ok {
		m.counters[storage.FileSequence] = 0
	}
	return nil
}

// UpsertUser creates the user or refreshes username and first name
func (m *MockDB) UpsertUser(ctx context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now().UTC()
		}
		m.users[user.ID] = user
		return nil
	}
	existing.Username = user.Username
	existing.FirstName = user.FirstName
	m.users[user.ID] = existing
	return nil
}

func (m *MockDB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (m *MockDB) SetCaption(ctx context.Context, id int64, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.users[id]
	u.ID = id
	u.Caption = caption
	m.users[id] = u
	return nil
}

func (m *MockDB) SetBanned(ctx context.Context, id int64, banned bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if ok && u.Banned == banned {
		return false, nil
	}
	if !ok && !banned {
		return false, nil
	}
	u.ID = id
	u.Banned = banned
	m.users[id] = u
	return true, nil
}

// ListActiveUserIDs returns all users that are not banned, sorted by id
func (m *MockDB) ListActiveUserIDs(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []int64
	for id, u := range m.users {
		if !u.Banned {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MockDB) CountUsers(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *MockDB) NextSequence(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[name]++
	return m.counters[name], nil
}

func (m *MockDB) InsertFile(ctx context.Context, file *models.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[file.ID]; ok {
		return storage.ErrConflict
	}
	m.files[file.ID] = *file
	return nil
}

func (m *MockDB) GetFile(ctx context.Context, id int64) (*models.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.files[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &f, nil
}

func (m *MockDB) DeleteFile(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.files, id)
	return nil
}

func (m *MockDB) CountFilesByUploader(ctx context.Context, uploaderID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, f := range m.files {
		if f.UploaderID == uploaderID {
			n++
		}
	}
	return n, nil
}

func (m *MockDB) ListFilesByUploader(ctx context.Context, uploaderID int64, limit int) ([]models.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var files []models.FileRecord
	for _, f := range m.files {
		if f.UploaderID == uploaderID {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID > files[j].ID })
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (m *MockDB) InsertCode(ctx context.Context, code *models.RedeemCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.codes[code.Code]; ok {
		return storage.ErrConflict
	}
	m.codes[code.Code] = cloneCode(code)
	return nil
}

func (m *MockDB) GetCode(ctx context.Context, code string) (*models.RedeemCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.codes[code]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneCode(c), nil
}

func (m *MockDB) CodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.codes[code]
	return ok, nil
}

func (m *MockDB) ReserveRedemption(ctx context.Context, code string, userID int64) (*models.RedeemCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.codes[code]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if c.HasRedeemed(userID) || c.LimitReached() {
		return nil, storage.ErrConflict
	}
	c.Count++
	c.RedeemedBy = append(c.RedeemedBy, userID)
	return cloneCode(c), nil
}

func (m *MockDB) ReleaseRedemption(ctx context.Context, code string, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.codes[code]
	if !ok {
		return storage.ErrNotFound
	}
	for i, id := range c.RedeemedBy {
		if id == userID {
			c.RedeemedBy = append(c.RedeemedBy[:i], c.RedeemedBy[i+1:]...)
			c.Count--
			return nil
		}
	}
	return nil
}

func (m *MockDB) PopPoolItem(ctx context.Context, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.codes[code]
	if !ok {
		return "", storage.ErrNotFound
	}
	pool, ok := c.Prize.(models.PoolPrize)
	if !ok || len(pool.Items) == 0 {
		return "", storage.ErrEmpty
	}
	item := pool.Items[0]
	c.Prize = models.PoolPrize{Items: append([]string(nil), pool.Items[1:]...)}
	return item, nil
}

func (m *MockDB) RestorePoolItem(ctx context.Context, code string, item string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.codes[code]
	if !ok {
		return storage.ErrNotFound
	}
	pool, ok := c.Prize.(models.PoolPrize)
	if !ok {
		return storage.ErrConflict
	}
	c.Prize = models.PoolPrize{Items: append([]string{item}, pool.Items...)}
	return nil
}

func (m *MockDB) GetConfig(ctx context.Context) (*models.BotConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg := m.config
	cfg.AdminIDs = append([]int64(nil), m.config.AdminIDs...)
	cfg.ForceSubChannels = append([]string(nil), m.config.ForceSubChannels...)
	return &cfg, nil
}

func (m *MockDB) AddAdmin(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.config.AdminIDs {
		if a == id {
			return false, nil
		}
	}
	m.config.AdminIDs = append(m.config.AdminIDs, id)
	return true, nil
}

func (m *MockDB) RemoveAdmin(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, a := range m.config.AdminIDs {
		if a == id {
			m.config.AdminIDs = append(m.config.AdminIDs[:i], m.config.AdminIDs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MockDB) SetAutoDelete(ctx context.Context, seconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.AutoDeleteSeconds = seconds
	return nil
}

func (m *MockDB) SetBotEnabled(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.BotEnabled = enabled
	return nil
}

func (m *MockDB) AddForceSubChannel(ctx context.Context, channel string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.config.ForceSubChannels {
		if c == channel {
			return false, nil
		}
	}
	m.config.ForceSubChannels = append(m.config.ForceSubChannels, channel)
	return true, nil
}

func (m *MockDB) RemoveForceSubChannel(ctx context.Context, channel string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.config.ForceSubChannels {
		if c == channel {
			m.config.ForceSubChannels = append(m.config.ForceSubChannels[:i], m.config.ForceSubChannels[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}

func cloneCode(c *models.RedeemCode) *models.RedeemCode {
	out := *c
	out.RedeemedBy = append([]int64(nil), c.RedeemedBy...)
	if pool, ok := c.Prize.(models.PoolPrize); ok {
		out.Prize = models.PoolPrize{Items: append([]string(nil), pool.Items...)}
	}
	return &out
}
