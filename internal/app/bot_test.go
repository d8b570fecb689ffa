package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/go-pkgz/lgr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agalitsyn/artist-scheduler/internal/model"
	"github.com/agalitsyn/artist-scheduler/internal/schedule"
	"github.com/agalitsyn/artist-scheduler/internal/seed"
	"github.com/agalitsyn/artist-scheduler/internal/store"
)

type fakeSender struct {
	sent     []tgbotapi.Chattable
	requests int
	failAll  bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.failAll {
		return tgbotapi.Message{}, errors.New("telegram is down")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	msg, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok, "last sent is %T", f.sent[len(f.sent)-1])
	return msg.Text
}

type memRepo struct{ tasks []model.Task }

func (r *memRepo) LoadTasks(context.Context) ([]model.Task, bool) { return nil, false }

func (r *memRepo) SaveTasks(_ context.Context, tasks []model.Task) bool {
	r.tasks = append([]model.Task(nil), tasks...)
	return true
}

const chatID = 100

func newTestBot(t *testing.T, cfg BotConfig) (*Bot, *fakeSender, *schedule.Schedule) {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	sched := schedule.New(&memRepo{}, schedule.WithClock(now))
	require.NoError(t, sched.Hydrate(context.Background(), seed.LoaderFunc(func(context.Context) ([]model.Task, error) {
		return []model.Task{
			{ID: 1, Year: "2025", Month: "3月", Type: "插画", Status: model.StatusUnconfirmed, Artists: []string{"A"}},
			{ID: 2, Year: "2025", Month: "5月", Type: "展会", Status: model.StatusPending, Artists: []string{"B"}, ArtistsTemp: []string{"C"}},
			{ID: 3, Year: "2024", Month: "1月", Type: "插画", Status: model.StatusPending, Artists: []string{}},
		}, nil
	})))

	api := &fakeSender{}
	b := newBot(cfg, api, "schedbot", lgr.NoOp, sched)
	b.now = now
	return b, api, sched
}

func command(text string, fromID int64) tgbotapi.Update {
	name, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: text,
			Chat: &tgbotapi.Chat{ID: chatID},
			From: &tgbotapi.User{ID: fromID},
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len(name)},
			},
		},
	}
}

func callback(data string, fromID int64) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb",
			From:    &tgbotapi.User{ID: fromID},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
			Data:    data,
		},
	}
}

func TestBot_ListAndFilter(t *testing.T) {
	b, api, sched := newTestBot(t, BotConfig{})
	ctx := context.Background()

	b.HandleUpdate(ctx, command("/list", 1))
	text := api.lastText(t)
	assert.Contains(t, text, "2 of 3 tasks")
	assert.Contains(t, text, "3月 · 插画 · A [1]")
	assert.Contains(t, text, "(暂定: C)")

	b.HandleUpdate(ctx, command("/filter status=pending", 1))
	assert.Contains(t, api.lastText(t), "1 of 3 tasks")
	assert.Equal(t, model.StatusPending, sched.Filter().Status)

	b.HandleUpdate(ctx, command("/filter colour=red", 1))
	assert.Contains(t, api.lastText(t), "unknown filter")

	b.HandleUpdate(ctx, command("/reset", 1))
	assert.Equal(t, model.TaskFilter{Year: "2025"}, sched.Filter())

	b.HandleUpdate(ctx, command("/search b", 1))
	assert.Contains(t, api.lastText(t), "1 of 3 tasks")
}

func TestBot_YearNavigation(t *testing.T) {
	b, api, sched := newTestBot(t, BotConfig{})
	ctx := context.Background()

	b.HandleUpdate(ctx, command("/next", 1))
	assert.Contains(t, api.lastText(t), "No more years, staying at 2025")

	b.HandleUpdate(ctx, callback("cmd_prev", 1))
	assert.Equal(t, 2024, sched.CurrentYear())
	assert.Equal(t, 1, api.requests)

	b.HandleUpdate(ctx, command("/year 2025", 1))
	assert.Equal(t, 2025, sched.CurrentYear())

	b.HandleUpdate(ctx, command("/years", 1))
	assert.Equal(t, "Years: 2024 [2025]", api.lastText(t))
}

func TestBot_MentionCommand(t *testing.T) {
	b, api, _ := newTestBot(t, BotConfig{})

	b.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: "@schedbot /show 2",
			Chat: &tgbotapi.Chat{ID: chatID},
			From: &tgbotapi.User{ID: 1},
		},
	})
	assert.Contains(t, api.lastText(t), "#2 展会")
}

func TestBot_AddEditDelete(t *testing.T) {
	b, api, sched := newTestBot(t, BotConfig{})
	ctx := context.Background()

	b.HandleUpdate(ctx, command("/add type=约稿 month=7 status=未确认 artists=D,E", 1))
	require.Contains(t, api.lastText(t), "Task added")
	tasks := sched.Tasks()
	require.Len(t, tasks, 4)
	created := tasks[3]
	assert.Equal(t, model.Year("2025"), created.Year)
	assert.Equal(t, []string{"D", "E"}, created.Artists)

	b.HandleUpdate(ctx, command("/add type=约稿", 1))
	assert.Contains(t, api.lastText(t), "month is required")
	assert.Len(t, sched.Tasks(), 4)

	b.HandleUpdate(ctx, command("/edit 1 location=上海 status=pending", 1))
	require.Contains(t, api.lastText(t), "Task updated")
	got, err := sched.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "上海", got.Location)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, "插画", got.Type)

	b.HandleUpdate(ctx, command("/delete 1", 1))
	prompt, ok := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.NotNil(t, prompt.ReplyMarkup)
	assert.Len(t, sched.Tasks(), 4)

	b.HandleUpdate(ctx, callback("delete_cancel:1", 1))
	assert.Len(t, sched.Tasks(), 4)

	b.HandleUpdate(ctx, callback("delete_confirm:1", 1))
	assert.Equal(t, "🗑 Task deleted.", api.lastText(t))
	assert.Len(t, sched.Tasks(), 3)
}

func TestBot_AdminsOnly(t *testing.T) {
	b, api, sched := newTestBot(t, BotConfig{Admins: []int64{42}})
	ctx := context.Background()

	b.HandleUpdate(ctx, command("/add type=x month=1 status=pending", 7))
	assert.Contains(t, api.lastText(t), "Only admins")

	b.HandleUpdate(ctx, callback("delete_confirm:1", 7))
	assert.Len(t, sched.Tasks(), 3)

	b.HandleUpdate(ctx, command("/add type=x month=1 status=pending", 42))
	assert.Len(t, sched.Tasks(), 4)
}

func TestBot_Export(t *testing.T) {
	b, api, _ := newTestBot(t, BotConfig{})

	b.HandleUpdate(context.Background(), command("/export", 1))
	require.Len(t, api.sent, 2)

	var names []string
	for _, c := range api.sent {
		doc, ok := c.(tgbotapi.DocumentConfig)
		require.True(t, ok)
		names = append(names, doc.File.(tgbotapi.FileBytes).Name)
	}
	assert.Equal(t, []string{"artist-scheduler-2025-06-01.json", "artist-scheduler-2025-06-01.csv"}, names)
}

func TestBot_Stats(t *testing.T) {
	b, api, _ := newTestBot(t, BotConfig{})

	b.HandleUpdate(context.Background(), command("/stats", 1))
	text := api.lastText(t)
	assert.Contains(t, text, "2 tasks · 🟢 1 pending · 🟡 1 unconfirmed")
	assert.Contains(t, text, "C: 1")
	assert.NotContains(t, text, "1月: 0")
}

func TestBot_NotifyChange(t *testing.T) {
	b, api, sched := newTestBot(t, BotConfig{NotifyChatID: 555})
	unsubscribe := sched.Subscribe(b.notifyChange)
	defer unsubscribe()

	sched.SetFilter(model.TaskFilter{Year: "2024"})
	msg, ok := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(555), msg.ChatID)
	assert.Contains(t, msg.Text, "3 tasks, 1 visible in 2024")
}

func TestParseCommand(t *testing.T) {
	cmd, ok := parseCommand("@schedbot /list", "schedbot")
	assert.True(t, ok)
	assert.Equal(t, "list", cmd)

	_, ok = parseCommand("hello", "schedbot")
	assert.False(t, ok)
}

func TestApplyTaskArgs(t *testing.T) {
	task, err := applyTaskArgs(model.Task{}, "year=2026 month=12月 type=展会 status=confirmed temp=X、Y notes=hi")
	require.NoError(t, err)
	assert.Equal(t, model.Year("2026"), task.Year)
	assert.Equal(t, model.Month("12月"), task.Month)
	assert.Equal(t, model.StatusPending, task.Status)
	assert.Equal(t, []string{"X", "Y"}, task.ArtistsTemp)

	_, err = applyTaskArgs(model.Task{}, "month=13")
	assert.Error(t, err)
	_, err = applyTaskArgs(model.Task{}, "bogus")
	assert.Error(t, err)

	task, err = applyTaskArgs(model.Task{}, "notes=two  words type=插画")
	require.NoError(t, err)
	assert.Equal(t, "two words", task.Notes)
	assert.Equal(t, "插画", task.Type)
}

func TestParseFilter_SearchWithSpaces(t *testing.T) {
	f, err := parseFilter(model.TaskFilter{Year: "2025"}, "q=hello world status=confirmed")
	require.NoError(t, err)
	assert.Equal(t, "hello world", f.Search)
	assert.Equal(t, model.StatusPending, f.Status)
}

func TestBot_ShowStoredUnknownStatus(t *testing.T) {
	tasks, err := store.Decode([]byte(`{"2025":[{"id":7,"month":"3月","type":"插画","status":"进行中","artists":["A"]}]}`))
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	sched := schedule.New(&memRepo{}, schedule.WithClock(now))
	require.NoError(t, sched.Hydrate(context.Background(), seed.LoaderFunc(func(context.Context) ([]model.Task, error) {
		return tasks, nil
	})))

	api := &fakeSender{}
	b := newBot(BotConfig{}, api, "schedbot", lgr.NoOp, sched)

	require.NotPanics(t, func() { b.HandleUpdate(context.Background(), command("/show 7", 1)) })
	text := api.lastText(t)
	assert.Contains(t, text, "#7 插画")
	assert.Contains(t, text, "未确认")
}

func TestBot_AddNotesWithSpaces(t *testing.T) {
	b, api, sched := newTestBot(t, BotConfig{})

	b.HandleUpdate(context.Background(), command("/add type=约稿 month=7 status=pending notes=bring two sketches location=上海 东区", 1))
	require.Contains(t, api.lastText(t), "Task added")
	tasks := sched.Tasks()
	require.Len(t, tasks, 4)
	assert.Equal(t, "bring two sketches", tasks[3].Notes)
	assert.Equal(t, "上海 东区", tasks[3].Location)
}

func TestBot_FailedRepliesAreLogged(t *testing.T) {
	var logs bytes.Buffer
	b, api, _ := newTestBot(t, BotConfig{})
	b.log = lgr.New(lgr.Out(&logs), lgr.Debug)

	api.failAll = true
	b.HandleUpdate(context.Background(), command("/export", 1))
	assert.Contains(t, logs.String(), "could not send reply to chat 100")
	assert.Contains(t, logs.String(), "could not send json export")
}
