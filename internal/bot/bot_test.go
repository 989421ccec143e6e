package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"filebot/internal/conversation"
	gwstubs "filebot/internal/gateway/stubs"
	"filebot/internal/messages"
	"filebot/internal/models"
	"filebot/internal/registry"
	"filebot/internal/storage"
	"filebot/internal/storage/stubs"
)

const (
	ownerID      = int64(1)
	storageGroup = int64(-100)
)

type scheduled struct {
	delay time.Duration
	run   func()
}

type testBot struct {
	*Bot
	gw      *gwstubs.Recorder
	db      *stubs.MockDB
	pending []scheduled
	nextMsg int
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	return newTestBotWith(t, nil)
}

// newTestBotWith lets a test wrap the in-memory store before the bot uses it
func newTestBotWith(t *testing.T, wrap func(*stubs.MockDB) storage.Storage) *testBot {
	t.Helper()
	db := stubs.NewMockDB()
	require.NoError(t, db.Initialize(context.Background()))
	gw := gwstubs.NewRecorder("filebot")

	var store storage.Storage = db
	if wrap != nil {
		store = wrap(db)
	}

	tb := &testBot{gw: gw, db: db}
	tb.Bot = NewBot(nil, gw, store, storage.NopActivityLog{}, Options{OwnerID: ownerID, StorageGroupID: storageGroup}, zap.NewNop())
	tb.afterFunc = func(d time.Duration, f func()) {
		tb.pending = append(tb.pending, scheduled{delay: d, run: f})
	}
	tb.background = func(f func()) { f() }
	return tb
}

// failingFilesDB refuses to store file records
type failingFilesDB struct {
	*stubs.MockDB
}

func (failingFilesDB) InsertFile(context.Context, *models.FileRecord) error {
	return errors.New("write failed")
}

func (tb *testBot) message(userID int64) *tgbotapi.Message {
	tb.nextMsg++
	return &tgbotapi.Message{
		MessageID: tb.nextMsg,
		From:      &tgbotapi.User{ID: userID, FirstName: "User"},
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
	}
}

// send delivers a text message; texts starting with "/" become commands
func (tb *testBot) send(userID int64, text string) {
	msg := tb.message(userID)
	msg.Text = text
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	tb.HandleUpdate(tgbotapi.Update{Message: msg})
}

func (tb *testBot) sendDocument(userID int64, fileID string) {
	msg := tb.message(userID)
	msg.Document = &tgbotapi.Document{FileID: fileID}
	tb.HandleUpdate(tgbotapi.Update{Message: msg})
}

func (tb *testBot) callback(userID int64, data string) {
	tb.HandleUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: userID},
		Data: data,
	}})
}

func (tb *testBot) lastText(t *testing.T, chatID int64) string {
	t.Helper()
	last, ok := tb.gw.Last(chatID)
	require.True(t, ok, "nothing sent to %d", chatID)
	return last.Text
}

// upload runs the upload flow and returns the stored record
func (tb *testBot) upload(t *testing.T, userID int64, fileID string) *models.FileRecord {
	t.Helper()
	tb.send(userID, messages.ButtonUpload)
	tb.sendDocument(userID, fileID)

	copied, ok := tb.gw.Last(storageGroup)
	require.True(t, ok, "upload was not copied to storage")
	require.Equal(t, "copy_message", copied.Op)

	var rec *models.FileRecord
	for id := int64(1); id <= 20 && rec == nil; id++ {
		if r, err := tb.db.GetFile(context.Background(), id); err == nil && r.Handle == fileID {
			rec = r
		}
	}
	require.NotNil(t, rec, "file %s not registered", fileID)
	return rec
}

func TestBot_UploadAndDownloadByLink(t *testing.T) {
	tb := newTestBot(t)

	rec := tb.upload(t, 10, "DOC1")
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, models.MediaDocument, rec.Kind)
	assert.Equal(t, messages.DefaultCaption, rec.Caption)
	assert.Equal(t, storageGroup, rec.Storage.ChatID)
	assert.NotZero(t, rec.Storage.MessageID)

	link := registry.DeepLink("filebot", rec.ID, rec.Token)
	assert.Equal(t, messages.UploadSuccess(rec.ID, link), tb.lastText(t, 10))

	tb.send(20, "/start "+registry.StartPayload(rec.ID, rec.Token))
	sent := tb.gw.SentTo(20)
	require.Len(t, sent, 2)
	assert.Equal(t, "send_media", sent[0].Op)
	assert.Equal(t, "DOC1", sent[0].Handle)
	assert.Equal(t, messages.DefaultCaption, sent[0].Text)
	assert.Equal(t, messages.Disclaimer, sent[1].Text)

	// Auto-delete is off by default
	assert.Empty(t, tb.pending)
}

func TestBot_FailedRegistrationRemovesStorageCopy(t *testing.T) {
	tb := newTestBotWith(t, func(db *stubs.MockDB) storage.Storage {
		return failingFilesDB{db}
	})

	tb.send(10, messages.ButtonUpload)
	tb.sendDocument(10, "DOC1")
	assert.Equal(t, messages.GenericFailure, tb.lastText(t, 10))

	copied, ok := tb.gw.Last(storageGroup)
	require.True(t, ok)
	deleted := tb.gw.Deleted()
	require.Len(t, deleted, 1)
	assert.Equal(t, storageGroup, deleted[0].ChatID)
	assert.Equal(t, copied.MessageID, deleted[0].MessageID)
}

func TestBot_MyFiles(t *testing.T) {
	tb := newTestBot(t)

	tb.send(10, messages.ButtonMyFiles)
	assert.Equal(t, messages.NoFiles, tb.lastText(t, 10))

	first := tb.upload(t, 10, "DOC1")
	tb.upload(t, 20, "DOC2")
	second := tb.upload(t, 10, "DOC3")

	want := messages.MyFiles(2, []string{
		messages.FileEntry(second.ID, "document", registry.DeepLink("filebot", second.ID, second.Token)),
		messages.FileEntry(first.ID, "document", registry.DeepLink("filebot", first.ID, first.Token)),
	})
	tb.send(10, messages.ButtonMyFiles)
	assert.Equal(t, want, tb.lastText(t, 10))

	tb.send(10, "/myfiles")
	assert.Equal(t, want, tb.lastText(t, 10))
}

func TestBot_DownloadWithWrongTokenLooksMissing(t *testing.T) {
	tb := newTestBot(t)
	rec := tb.upload(t, 10, "DOC1")

	tb.send(20, "/start "+registry.StartPayload(rec.ID, "AAAAAAAAAAAAAAAA"))
	assert.Equal(t, messages.DownloadLinkError, tb.lastText(t, 20))

	tb.send(20, "/start "+registry.StartPayload(999, rec.Token))
	assert.Equal(t, messages.DownloadLinkError, tb.lastText(t, 20))

	tb.send(20, "/start getfile_abc_10_20_token")
	assert.Equal(t, messages.DownloadLinkError, tb.lastText(t, 20))

	for _, s := range tb.gw.SentTo(20) {
		assert.NotEqual(t, "send_media", s.Op)
	}
}

func TestBot_UploadUsesSavedCaption(t *testing.T) {
	tb := newTestBot(t)

	tb.send(10, messages.ButtonCaption)
	assert.Equal(t, messages.CaptionRequest(messages.DefaultCaption), tb.lastText(t, 10))
	tb.send(10, "My caption")
	assert.Equal(t, messages.CaptionSaved, tb.lastText(t, 10))

	tb.send(10, messages.ButtonUpload)
	msg := tb.message(10)
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big"}}
	tb.HandleUpdate(tgbotapi.Update{Message: msg})

	copied, ok := tb.gw.Last(storageGroup)
	require.True(t, ok)
	assert.Equal(t, "My caption", copied.Text)

	rec, err := tb.db.GetFile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.MediaPhoto, rec.Kind)
	assert.Equal(t, "big", rec.Handle)

	tb.send(20, "/start "+registry.StartPayload(rec.ID, rec.Token))
	sent := tb.gw.SentTo(20)
	require.NotEmpty(t, sent)
	assert.Equal(t, "My caption", sent[0].Text)
}

func TestBot_UploadRejectsPlainText(t *testing.T) {
	tb := newTestBot(t)

	tb.send(10, messages.ButtonUpload)
	tb.send(10, "just text")
	assert.Equal(t, messages.UploadUnsupported, tb.lastText(t, 10))

	state, ok := tb.states.Get(10)
	require.True(t, ok, "upload flow should still be pending")
	assert.Equal(t, conversation.AwaitingUpload, state.Tag)

	tb.send(10, messages.ButtonBack)
	assert.Equal(t, messages.MainMenu, tb.lastText(t, 10))
	_, ok = tb.states.Get(10)
	assert.False(t, ok)
}

func TestBot_PendingStateTakesMenuLabels(t *testing.T) {
	tb := newTestBot(t)
	tb.upload(t, 10, "DOC1")

	tb.send(10, "/getfile")
	assert.Equal(t, messages.GetFileRequest, tb.lastText(t, 10))

	tb.send(10, messages.ButtonProfile)
	assert.Equal(t, messages.InvalidFileID, tb.lastText(t, 10))
	_, ok := tb.states.Get(10)
	assert.False(t, ok)
}

func TestBot_GetFileByID(t *testing.T) {
	tb := newTestBot(t)
	tb.upload(t, 10, "DOC1")

	// Strangers cannot fetch by id
	tb.send(30, messages.ButtonGetFile)
	tb.send(30, "1")
	assert.Equal(t, messages.FileNotFound, tb.lastText(t, 30))

	tb.send(10, messages.ButtonGetFile)
	tb.send(10, "1")
	sent := tb.gw.SentTo(10)
	require.GreaterOrEqual(t, len(sent), 2)
	assert.Equal(t, "send_media", sent[len(sent)-2].Op)
	assert.Equal(t, messages.Disclaimer, sent[len(sent)-1].Text)

	// Owner is an admin and may fetch any file
	tb.send(ownerID, "/getfile")
	tb.send(ownerID, "1")
	assert.Equal(t, messages.Disclaimer, tb.lastText(t, ownerID))
}

func TestBot_DeleteFile(t *testing.T) {
	tb := newTestBot(t)
	tb.upload(t, 10, "DOC1")

	tb.send(20, messages.ButtonDelete)
	tb.send(20, "1")
	assert.Equal(t, messages.FileNotFound, tb.lastText(t, 20))

	tb.send(10, messages.ButtonDelete)
	tb.send(10, "1")
	assert.Equal(t, messages.DeleteSuccess(1), tb.lastText(t, 10))

	_, err := tb.db.GetFile(context.Background(), 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	require.Len(t, tb.gw.Deleted(), 1)
	assert.Equal(t, storageGroup, tb.gw.Deleted()[0].ChatID)
}

func TestBot_AutoDeleteDeliveredFile(t *testing.T) {
	tb := newTestBot(t)
	rec := tb.upload(t, 10, "DOC1")

	tb.send(ownerID, "/set_delete_timer 60")
	assert.Equal(t, messages.TimerSet(60), tb.lastText(t, ownerID))
	tb.send(ownerID, "/check_delete_timer")
	assert.Equal(t, messages.TimerStatus(60), tb.lastText(t, ownerID))

	tb.send(20, "/start "+registry.StartPayload(rec.ID, rec.Token))
	sent := tb.gw.SentTo(20)
	require.NotEmpty(t, sent)
	media := sent[0]

	require.Len(t, tb.pending, 1)
	assert.Equal(t, 60*time.Second, tb.pending[0].delay)
	assert.Empty(t, tb.gw.Deleted())

	tb.pending[0].run()
	deleted := tb.gw.Deleted()
	require.Len(t, deleted, 1)
	assert.Equal(t, int64(20), deleted[0].ChatID)
	assert.Equal(t, media.MessageID, deleted[0].MessageID)
}

func TestBot_DeleteTimerPrompt(t *testing.T) {
	tb := newTestBot(t)

	tb.send(ownerID, "/set_delete_timer")
	assert.Equal(t, messages.TimerPrompt, tb.lastText(t, ownerID))
	tb.send(ownerID, "soon")
	assert.Equal(t, messages.InvalidNumber, tb.lastText(t, ownerID))
	tb.send(ownerID, "0")
	assert.Equal(t, messages.TimerSet(0), tb.lastText(t, ownerID))
}

func TestBot_RedeemLimitedCode(t *testing.T) {
	tb := newTestBot(t)

	tb.send(ownerID, messages.ButtonCreateCode)
	assert.Equal(t, messages.CodeItemPrompt, tb.lastText(t, ownerID))
	tb.send(ownerID, "secret prize")
	assert.Equal(t, messages.CodeLimitPrompt, tb.lastText(t, ownerID))
	tb.send(ownerID, "2")

	created := tb.lastText(t, ownerID)
	code := strings.TrimPrefix(created, messages.CodeCreated(""))
	require.Len(t, code, 14, "unexpected reply %q", created)

	redeem := func(userID int64, input string) string {
		tb.send(userID, messages.ButtonRedeem)
		tb.send(userID, input)
		return tb.lastText(t, userID)
	}

	assert.Equal(t, messages.RedeemSuccess, redeem(10, strings.ToLower(code)))
	sent := tb.gw.SentTo(10)
	assert.Equal(t, "secret prize", sent[len(sent)-2].Text)

	assert.Equal(t, messages.RedeemClaimed, redeem(10, code))
	assert.Equal(t, messages.RedeemSuccess, redeem(20, code))
	assert.Equal(t, messages.RedeemLimit, redeem(30, code))
	assert.Equal(t, messages.RedeemNotFound, redeem(30, "ZZZZ-ZZZZ-ZZZZ"))

	assert.Equal(t, messages.RedeemNotification("", 20, code, "0"), tb.lastText(t, ownerID))
}

func TestBot_RedeemFileCode(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.send(ownerID, "/set_delete_timer 30")
	tb.send(ownerID, messages.ButtonCreateCode)
	tb.sendDocument(ownerID, "PRIZE_DOC")
	assert.Equal(t, messages.CodeLimitPrompt, tb.lastText(t, ownerID))
	tb.send(ownerID, "1")

	created := tb.lastText(t, ownerID)
	code := strings.TrimPrefix(created, messages.CodeCreated(""))
	require.Len(t, code, 14, "unexpected reply %q", created)

	stored, err := tb.db.GetCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, models.FilePrize{Kind: models.MediaDocument, Handle: "PRIZE_DOC"}, stored.Prize)

	tb.send(10, messages.ButtonRedeem)
	tb.send(10, code)
	assert.Equal(t, messages.RedeemSuccessTimed(messages.Duration(30)), tb.lastText(t, 10))

	sent := tb.gw.SentTo(10)
	require.GreaterOrEqual(t, len(sent), 2)
	media := sent[len(sent)-2]
	assert.Equal(t, "send_media", media.Op)
	assert.Equal(t, models.MediaDocument, media.Kind)
	assert.Equal(t, "PRIZE_DOC", media.Handle)

	require.Len(t, tb.pending, 1)
	assert.Equal(t, 30*time.Second, tb.pending[0].delay)
	tb.pending[0].run()
	deleted := tb.gw.Deleted()
	require.Len(t, deleted, 1)
	assert.Equal(t, int64(10), deleted[0].ChatID)
	assert.Equal(t, media.MessageID, deleted[0].MessageID)

	tb.send(20, messages.ButtonRedeem)
	tb.send(20, code)
	assert.Equal(t, messages.RedeemLimit, tb.lastText(t, 20))
}

func TestBot_RedeemPoolCode(t *testing.T) {
	tb := newTestBot(t)

	tb.send(ownerID, "/createpool")
	assert.Equal(t, messages.PoolItemsPrompt, tb.lastText(t, ownerID))
	tb.send(ownerID, "   ")
	assert.Equal(t, messages.PoolItemsInvalid, tb.lastText(t, ownerID))
	tb.send(ownerID, "first\nsecond")
	assert.Equal(t, messages.PoolLimitPrompt(2), tb.lastText(t, ownerID))
	tb.send(ownerID, "0")

	created := tb.lastText(t, ownerID)
	require.True(t, strings.HasPrefix(created, "✅ Pool code created: POOL-"), created)
	code := strings.Fields(strings.TrimPrefix(created, "✅ Pool code created: "))[0]

	for i, userID := range []int64{10, 20} {
		tb.send(userID, messages.ButtonRedeem)
		tb.send(userID, code)
		sent := tb.gw.SentTo(userID)
		require.GreaterOrEqual(t, len(sent), 2)
		assert.Equal(t, []string{"first", "second"}[i], sent[len(sent)-2].Text)
	}

	tb.send(30, messages.ButtonRedeem)
	tb.send(30, code)
	assert.Equal(t, messages.RedeemPoolEmpty, tb.lastText(t, 30))
}

func TestBot_RedeemAnnouncesAutoDelete(t *testing.T) {
	tb := newTestBot(t)
	tb.send(ownerID, "/set_delete_timer 120")

	tb.send(ownerID, "/createcode")
	tb.send(ownerID, "prize")
	tb.send(ownerID, "0")
	code := strings.TrimPrefix(tb.lastText(t, ownerID), messages.CodeCreated(""))

	tb.send(10, messages.ButtonRedeem)
	tb.send(10, code)
	assert.Equal(t, messages.RedeemSuccessTimed("2 minutes"), tb.lastText(t, 10))
	assert.Len(t, tb.pending, 1)
}

func TestBot_BanGate(t *testing.T) {
	tb := newTestBot(t)
	tb.send(10, "/start")
	assert.Equal(t, messages.Start, tb.lastText(t, 10))

	tb.send(ownerID, messages.ButtonBan)
	assert.Equal(t, messages.BanRequest, tb.lastText(t, ownerID))
	tb.send(ownerID, "10")
	assert.Equal(t, messages.BanSuccess(10), tb.lastText(t, ownerID))

	tb.send(10, "/start")
	assert.Equal(t, messages.Banned, tb.lastText(t, 10))
	tb.send(10, messages.ButtonUpload)
	assert.Equal(t, messages.Banned, tb.lastText(t, 10))

	tb.send(ownerID, "/addadmin 5")
	assert.Equal(t, messages.AdminAdded(5), tb.lastText(t, ownerID))
	tb.send(ownerID, messages.ButtonBan)
	tb.send(ownerID, "5")
	assert.Equal(t, messages.CannotBanAdmin, tb.lastText(t, ownerID))

	tb.send(ownerID, messages.ButtonUnban)
	tb.send(ownerID, "10")
	assert.Equal(t, messages.UnbanSuccess(10), tb.lastText(t, ownerID))
	tb.send(ownerID, messages.ButtonUnban)
	tb.send(ownerID, "10")
	assert.Equal(t, messages.UserNotBanned, tb.lastText(t, ownerID))

	tb.send(10, "/start")
	assert.Equal(t, messages.Start, tb.lastText(t, 10))
}

func TestBot_BotDisabledLetsAdminsThrough(t *testing.T) {
	tb := newTestBot(t)

	tb.send(ownerID, messages.ButtonBotState)
	assert.Equal(t, messages.BotStatusChanged(false), tb.lastText(t, ownerID))

	tb.send(10, "/start")
	assert.Equal(t, messages.BotDisabled, tb.lastText(t, 10))

	tb.send(ownerID, "/start")
	assert.Equal(t, messages.Start, tb.lastText(t, ownerID))
}

func TestBot_ForceSubscription(t *testing.T) {
	tb := newTestBot(t)

	tb.send(ownerID, "/addforcesub not a channel")
	assert.Equal(t, messages.Usage("addforcesub", "<@channel|channel_id>"), tb.lastText(t, ownerID))
	tb.send(ownerID, "/addforcesub @news")
	assert.Equal(t, messages.ForceSubAdded("@news"), tb.lastText(t, ownerID))

	tb.send(10, "/start")
	last, ok := tb.gw.Last(10)
	require.True(t, ok)
	assert.Equal(t, messages.JoinChannels, last.Text)
	assert.IsType(t, tgbotapi.InlineKeyboardMarkup{}, last.Markup)

	tb.callback(10, callbackVerify)
	assert.Equal(t, messages.JoinChannels, tb.lastText(t, 10))

	tb.gw.SetMember("@news", 10, true)
	tb.callback(10, callbackVerify)
	assert.Equal(t, messages.Verified, tb.lastText(t, 10))

	tb.send(10, "/start")
	assert.Equal(t, messages.Start, tb.lastText(t, 10))
}

func TestBot_BroadcastTally(t *testing.T) {
	tb := newTestBot(t)
	for _, userID := range []int64{10, 20, 30} {
		tb.send(userID, "/start")
	}
	tb.gw.FailChat(30)

	tb.send(ownerID, messages.ButtonBroadcast)
	assert.Equal(t, messages.BroadcastRequest, tb.lastText(t, ownerID))
	tb.send(ownerID, "hello all")

	assert.Equal(t, messages.BroadcastReport(2, 1), tb.lastText(t, ownerID))
	assert.Equal(t, "hello all", tb.lastText(t, 10))
	assert.Equal(t, "hello all", tb.lastText(t, 20))
}

func TestBot_BroadcastRunsOffTheUpdateLoop(t *testing.T) {
	tb := newTestBot(t)
	var jobs []func()
	tb.background = func(f func()) { jobs = append(jobs, f) }

	tb.send(10, "/start")
	tb.send(ownerID, messages.ButtonBroadcast)
	tb.send(ownerID, "hello all")
	assert.Equal(t, messages.BroadcastStarted(1), tb.lastText(t, ownerID))
	require.Len(t, jobs, 1)

	// Other users are served while the fan-out is pending
	tb.send(20, "/start")
	assert.Equal(t, messages.Start, tb.lastText(t, 20))
	assert.Equal(t, messages.Start, tb.lastText(t, 10))

	jobs[0]()
	assert.Equal(t, "hello all", tb.lastText(t, 10))
	assert.Equal(t, messages.BroadcastReport(1, 0), tb.lastText(t, ownerID))
}

func TestBot_ForwardBroadcast(t *testing.T) {
	tb := newTestBot(t)
	tb.send(10, "/start")

	tb.send(ownerID, messages.ButtonForwardBroadcast)
	tb.send(ownerID, "forward me")

	last, ok := tb.gw.Last(10)
	require.True(t, ok)
	assert.Equal(t, "forward_message", last.Op)
	assert.Equal(t, ownerID, last.FromChatID)
	assert.Equal(t, messages.BroadcastReport(1, 0), tb.lastText(t, ownerID))
}

func TestBot_AdminOnlyActions(t *testing.T) {
	tb := newTestBot(t)

	tb.send(10, "/panel")
	assert.Equal(t, messages.AccessDenied, tb.lastText(t, 10))

	// Admin labels from non-admins fall back to the main menu
	tb.send(10, messages.ButtonBroadcast)
	assert.Equal(t, messages.MainMenu, tb.lastText(t, 10))

	tb.send(10, "/set_delete_timer 5")
	assert.Equal(t, messages.OwnerOnly, tb.lastText(t, 10))
	tb.send(10, "/addadmin 10")
	assert.Equal(t, messages.OwnerOnly, tb.lastText(t, 10))

	tb.send(ownerID, "/addadmin 5")
	tb.send(5, "/panel")
	assert.Equal(t, messages.AdminPanel, tb.lastText(t, 5))
	tb.send(5, "/addadmin 6")
	assert.Equal(t, messages.OwnerOnly, tb.lastText(t, 5))

	tb.send(ownerID, "/removeadmin 1")
	assert.Equal(t, messages.CannotRemoveOwner, tb.lastText(t, ownerID))
	tb.send(ownerID, "/removeadmin 5")
	assert.Equal(t, messages.AdminRemoved(5), tb.lastText(t, ownerID))

	tb.send(5, "/panel")
	assert.Equal(t, messages.AccessDenied, tb.lastText(t, 5))
}

func TestBot_DemotedAdminLosesPendingFlow(t *testing.T) {
	tb := newTestBot(t)
	tb.send(ownerID, "/addadmin 5")

	tb.send(5, "/createcode")
	tb.send(ownerID, "/removeadmin 5")

	tb.send(5, "prize")
	assert.Equal(t, messages.AccessDenied, tb.lastText(t, 5))
}

func TestBot_SupportRoundTrip(t *testing.T) {
	tb := newTestBot(t)

	tb.send(10, messages.ButtonSupport)
	tb.send(10, "help me")
	assert.Equal(t, messages.SupportSent, tb.lastText(t, 10))

	relay, ok := tb.gw.Last(ownerID)
	require.True(t, ok)
	assert.Equal(t, messages.SupportFrom("User", 10, "help me"), relay.Text)

	tb.callback(ownerID, callbackAnswerSupport+"10")
	assert.Equal(t, messages.SupportReplyPrompt(10), tb.lastText(t, ownerID))
	tb.send(ownerID, "fixed")
	assert.Equal(t, messages.SupportReplySent, tb.lastText(t, ownerID))
	assert.Equal(t, messages.SupportReply("fixed"), tb.lastText(t, 10))

	// Only the owner may answer
	tb.callback(10, callbackAnswerSupport+"20")
	_, ok = tb.states.Get(10)
	assert.False(t, ok)
}

func TestBot_UnknownCommandAndGroupChats(t *testing.T) {
	tb := newTestBot(t)

	tb.send(10, "/nope")
	assert.Equal(t, messages.UnknownCommand, tb.lastText(t, 10))

	msg := tb.message(10)
	msg.Chat.Type = "group"
	msg.Chat.ID = -5
	msg.Text = "/start"
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Length: len("/start")}}
	tb.HandleUpdate(tgbotapi.Update{Message: msg})
	assert.Empty(t, tb.gw.SentTo(-5))
}
