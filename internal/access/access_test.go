package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	gwstubs "filebot/internal/gateway/stubs"
	"filebot/internal/models"
	"filebot/internal/storage/stubs"
)

const owner = int64(1)

func setup(t *testing.T) (*Authorizer, *Gate, *stubs.MockDB, *gwstubs.Recorder) {
	t.Helper()
	db := stubs.NewMockDB()
	gw := gwstubs.NewRecorder("filebot")
	auth := NewAuthorizer(db, owner, zap.NewNop())
	return auth, NewGate(db, auth, gw, zap.NewNop()), db, gw
}

func TestAuthorizer_AdminSet(t *testing.T) {
	auth, _, _, _ := setup(t)
	ctx := context.Background()

	isAdmin, err := auth.IsAdmin(ctx, owner)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, _ = auth.IsAdmin(ctx, 2)
	assert.False(t, isAdmin)

	added, err := auth.AddAdmin(ctx, owner, 2)
	require.NoError(t, err)
	assert.True(t, added)
	added, _ = auth.AddAdmin(ctx, owner, 2)
	assert.False(t, added)

	isAdmin, _ = auth.IsAdmin(ctx, 2)
	assert.True(t, isAdmin)

	admins, err := auth.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{owner, 2}, admins)

	removed, err := auth.RemoveAdmin(ctx, owner, 2)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, _ = auth.RemoveAdmin(ctx, owner, 2)
	assert.False(t, removed)
}

func TestAuthorizer_OwnerIsProtected(t *testing.T) {
	auth, _, _, _ := setup(t)
	ctx := context.Background()

	_, err := auth.RemoveAdmin(ctx, owner, owner)
	assert.ErrorIs(t, err, ErrOwnerProtected)

	_, err = auth.Ban(ctx, 5, owner)
	assert.ErrorIs(t, err, ErrAdminProtected)

	_, _ = auth.AddAdmin(ctx, owner, 3)
	_, err = auth.Ban(ctx, owner, 3)
	assert.ErrorIs(t, err, ErrAdminProtected)
}

func TestAuthorizer_Seed(t *testing.T) {
	auth, _, db, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, auth.Seed(ctx, []int64{owner, 7, 8}))
	cfg, err := db.GetConfig(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{owner, 7, 8}, cfg.AdminIDs)

	admins, _ := auth.ListAdmins(ctx)
	assert.Equal(t, []int64{owner, 7, 8}, admins)
}

func TestGate_Order(t *testing.T) {
	auth, gate, db, gw := setup(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertUser(ctx, models.User{ID: 10}))

	v, err := gate.Check(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, Allowed, v.Status)

	// force-sub
	_, _ = db.AddForceSubChannel(ctx, "@news")
	_, _ = db.AddForceSubChannel(ctx, "-1001")
	gw.SetMember("@news", 10, true)
	v, _ = gate.Check(ctx, 10)
	assert.Equal(t, NotSubscribed, v.Status)
	assert.Equal(t, []string{"-1001"}, v.Missing)

	gw.SetMember("-1001", 10, true)
	v, _ = gate.Check(ctx, 10)
	assert.Equal(t, Allowed, v.Status)

	// bot switch comes before force-sub, admins bypass it
	require.NoError(t, db.SetBotEnabled(ctx, false))
	v, _ = gate.Check(ctx, 10)
	assert.Equal(t, BotDisabled, v.Status)
	v, _ = gate.Check(ctx, owner)
	assert.Equal(t, NotSubscribed, v.Status)

	// ban comes first
	changed, err := auth.Ban(ctx, owner, 10)
	require.NoError(t, err)
	assert.True(t, changed)
	v, _ = gate.Check(ctx, 10)
	assert.Equal(t, Banned, v.Status)

	changed, err = auth.Unban(ctx, owner, 10)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, _ = auth.Unban(ctx, owner, 10)
	assert.False(t, changed)
}

type brokenMembers struct{}

func (brokenMembers) IsMember(context.Context, string, int64) (bool, error) {
	return false, errors.New("chat not found")
}

func TestGate_MembershipErrorCountsAsNotJoined(t *testing.T) {
	db := stubs.NewMockDB()
	auth := NewAuthorizer(db, owner, zap.NewNop())
	gate := NewGate(db, auth, brokenMembers{}, zap.NewNop())
	ctx := context.Background()
	_, _ = db.AddForceSubChannel(ctx, "@news")

	v, err := gate.Check(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, NotSubscribed, v.Status)
	assert.Equal(t, []string{"@news"}, v.Missing)
}
