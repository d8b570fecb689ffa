package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/artist-scheduler/internal/model"
	"github.com/agalitsyn/artist-scheduler/internal/report"
	"github.com/agalitsyn/artist-scheduler/internal/schedule"
	"github.com/agalitsyn/artist-scheduler/version"
)

type BotConfig struct {
	UpdateTimeout int
	// Admins may change tasks. Everyone may when empty.
	Admins []int64
	// NotifyChatID receives a short summary after every change, 0 disables it.
	NotifyChatID int64
	// ExportPause separates consecutive document uploads.
	ExportPause time.Duration
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api      sender
	username string

	cfg   BotConfig
	sched *schedule.Schedule
	log   lgr.L
	now   func() time.Time
}

func NewBot(cfg BotConfig, token string, logger lgr.L, sched *schedule.Schedule) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	tgbotapi.SetLogger(botLogger{logger})
	return newBot(cfg, api, api.Self.UserName, logger, sched), nil
}

func newBot(cfg BotConfig, api sender, username string, logger lgr.L, sched *schedule.Schedule) *Bot {
	if logger == nil {
		logger = lgr.NoOp
	}
	return &Bot{
		api:      api,
		username: username,
		cfg:      cfg,
		sched:    sched,
		log:      logger,
		now:      time.Now,
	}
}

func (b *Bot) SetDebug(debug bool) {
	if api, ok := b.api.(*tgbotapi.BotAPI); ok {
		api.Debug = debug
	}
}

func (b *Bot) Username() string {
	return b.username
}

// Start consumes updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	api, ok := b.api.(*tgbotapi.BotAPI)
	if !ok {
		b.log.Logf("[ERROR] bot is not connected to telegram")
		return
	}

	if b.cfg.NotifyChatID != 0 {
		unsubscribe := b.sched.Subscribe(b.notifyChange)
		defer unsubscribe()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	for {
		select {
		case update := <-updates:
			b.HandleUpdate(ctx, update)
		case <-ctx.Done():
			b.log.Logf("[DEBUG] bot stopped: %v", ctx.Err())
			return
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		if err := b.handleCallbackQuery(ctx, update); err != nil {
			b.log.Logf("[ERROR] handling callback query: %v", err)
		}
		return
	}

	if update.Message == nil { // ignore any non-Message updates
		return
	}

	if !update.Message.IsCommand() {
		command, ok := parseCommand(update.Message.Text, b.username)
		if !ok {
			return
		}
		// rewrite "@bot /cmd args" into a regular command message
		cmdUpdate := update
		msg := *update.Message
		msg.Text = "/" + command
		name, _, _ := strings.Cut(command, " ")
		msg.Entities = []tgbotapi.MessageEntity{
			{
				Type:   "bot_command",
				Offset: 0,
				Length: len(name) + 1,
			},
		}
		cmdUpdate.Message = &msg
		update = cmdUpdate
	}

	if err := b.handleCommand(ctx, update.Message); err != nil {
		b.log.Logf("[ERROR] handling command %q: %v", update.Message.Command(), err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, m *tgbotapi.Message) error {
	chatID := m.Chat.ID
	args := strings.TrimSpace(m.CommandArguments())

	switch m.Command() {
	case "start", "help":
		return b.showMainMenu(chatID)
	case "status":
		return b.reply(chatID, fmt.Sprintf("🤖 Schedule bot\n\n✅ Running\n📊 Version: %s\n🗂 Tasks: %d", version.String(), len(b.sched.Tasks())))
	case "list":
		return b.reply(chatID, formatView(b.sched.Snapshot()))
	case "years":
		return b.reply(chatID, formatYears(b.sched.Years(), b.sched.CurrentYear()))
	case "year":
		f := b.sched.Filter()
		f.Year = model.Year(args)
		b.sched.SetFilter(f)
		return b.reply(chatID, formatView(b.sched.Snapshot()))
	case "prev":
		return b.stepYear(chatID, -1)
	case "next":
		return b.stepYear(chatID, 1)
	case "search":
		f := b.sched.Filter()
		f.Search = args
		b.sched.SetFilter(f)
		return b.reply(chatID, formatView(b.sched.Snapshot()))
	case "filter":
		f, err := parseFilter(b.sched.Filter(), args)
		if err != nil {
			return b.reply(chatID, "⚠️ "+err.Error())
		}
		b.sched.SetFilter(f)
		return b.reply(chatID, formatView(b.sched.Snapshot()))
	case "reset":
		b.sched.SetFilter(model.TaskFilter{Year: b.sched.Filter().Year})
		return b.reply(chatID, formatView(b.sched.Snapshot()))
	case "show":
		task, err := b.taskFromArgs(args)
		if err != nil {
			return b.reply(chatID, "⚠️ "+err.Error())
		}
		return b.reply(chatID, formatTaskDetail(task))
	case "stats":
		return b.reply(chatID, formatStats(report.Compute(b.sched.Visible())))
	case "export":
		return b.exportCommand(ctx, chatID)
	case "add":
		return b.addCommand(ctx, m, args)
	case "edit":
		return b.editCommand(ctx, m, args)
	case "delete":
		return b.deleteCommand(m, args)
	default:
		return b.reply(chatID, "Unknown command, see /help.")
	}
}

func (b *Bot) stepYear(chatID int64, delta int) error {
	if !b.sched.StepYear(delta) {
		return b.reply(chatID, fmt.Sprintf("No more years, staying at %d.", b.sched.CurrentYear()))
	}
	return b.reply(chatID, formatView(b.sched.Snapshot()))
}

func (b *Bot) canEdit(from *tgbotapi.User) bool {
	if len(b.cfg.Admins) == 0 {
		return true
	}
	return from != nil && slices.Contains(b.cfg.Admins, from.ID)
}

func (b *Bot) addCommand(ctx context.Context, m *tgbotapi.Message, args string) error {
	if !b.canEdit(m.From) {
		return b.reply(m.Chat.ID, "⛔️ Only admins can change tasks.")
	}
	task, err := applyTaskArgs(model.Task{Year: model.Year(strconv.Itoa(b.sched.CurrentYear()))}, args)
	if err != nil {
		return b.reply(m.Chat.ID, "⚠️ "+err.Error())
	}
	created, err := b.sched.Create(ctx, task)
	if err != nil {
		return b.replyTaskError(m.Chat.ID, err)
	}
	b.log.Logf("[DEBUG] created task id=%d by user id=%d", created.ID, userID(m.From))
	return b.reply(m.Chat.ID, "✨ Task added\n\n"+formatTaskDetail(created))
}

// editCommand applies key=value pairs over the current record and saves the
// result as a whole.
func (b *Bot) editCommand(ctx context.Context, m *tgbotapi.Message, args string) error {
	if !b.canEdit(m.From) {
		return b.reply(m.Chat.ID, "⛔️ Only admins can change tasks.")
	}
	idArg, rest, _ := strings.Cut(args, " ")
	task, err := b.taskFromArgs(idArg)
	if err != nil {
		return b.reply(m.Chat.ID, "⚠️ "+err.Error())
	}
	task, err = applyTaskArgs(task, rest)
	if err != nil {
		return b.reply(m.Chat.ID, "⚠️ "+err.Error())
	}
	updated, err := b.sched.Update(ctx, task.ID, task)
	if err != nil {
		return b.replyTaskError(m.Chat.ID, err)
	}
	return b.reply(m.Chat.ID, "✏️ Task updated\n\n"+formatTaskDetail(updated))
}

// deleteCommand only asks, the inline button performs the removal.
func (b *Bot) deleteCommand(m *tgbotapi.Message, args string) error {
	if !b.canEdit(m.From) {
		return b.reply(m.Chat.ID, "⛔️ Only admins can change tasks.")
	}
	task, err := b.taskFromArgs(args)
	if err != nil {
		return b.reply(m.Chat.ID, "⚠️ "+err.Error())
	}

	msg := tgbotapi.NewMessage(m.Chat.ID, fmt.Sprintf("Delete task \"%s\" (%s %s)?", task.Type, task.Year, task.Month))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("delete_confirm:%d", task.ID)),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", fmt.Sprintf("delete_cancel:%d", task.ID)),
		),
	)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) exportCommand(ctx context.Context, chatID int64) error {
	tasks := b.sched.Tasks()
	now := b.now()

	steps := []struct {
		ext    string
		render func([]model.Task) ([]byte, error)
	}{
		{"json", report.JSON},
		{"csv", report.CSV},
	}
	for i, step := range steps {
		if i > 0 && b.cfg.ExportPause > 0 {
			select {
			case <-time.After(b.cfg.ExportPause):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		data, err := step.render(tasks)
		if err != nil {
			b.replyOrLog(chatID, "❌ Export failed.")
			return err
		}
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: report.FileName(now, step.ext), Bytes: data})
		if _, err := b.api.Send(doc); err != nil {
			b.replyOrLog(chatID, "❌ Export failed.")
			return fmt.Errorf("could not send %s export: %w", step.ext, err)
		}
	}
	return nil
}

func (b *Bot) taskFromArgs(args string) (model.Task, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return model.Task{}, fmt.Errorf("expected a task id")
	}
	task, err := b.sched.Get(id)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %d not found", id)
	}
	return task, nil
}

func (b *Bot) replyTaskError(chatID int64, err error) error {
	if errors.Is(err, model.ErrInvalidTask) || errors.Is(err, model.ErrTaskNotFound) {
		return b.reply(chatID, "⚠️ "+err.Error())
	}
	b.replyOrLog(chatID, "❌ Something went wrong.")
	return err
}

func (b *Bot) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

// replyOrLog is for failure paths that already return the original error.
func (b *Bot) replyOrLog(chatID int64, text string) {
	if err := b.reply(chatID, text); err != nil {
		b.log.Logf("[WARN] could not send reply to chat %d: %v", chatID, err)
	}
}

func (b *Bot) notifyChange(snap schedule.Snapshot) {
	text := fmt.Sprintf("🔄 Schedule changed: %d tasks, %d visible in %d", snap.Total, len(snap.Visible), snap.CurrentYear)
	if err := b.reply(b.cfg.NotifyChatID, text); err != nil {
		b.log.Logf("[WARN] could not send change notification: %v", err)
	}
}

func userID(u *tgbotapi.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}

func parseCommand(text string, botUsername string) (string, bool) {
	prefix := "@" + botUsername + " /"
	if strings.HasPrefix(text, prefix) {
		return strings.TrimPrefix(text, prefix), true
	}
	return "", false
}

func (b *Bot) showMainMenu(chatID int64) error {
	text := fmt.Sprintf(`🗓 Artist schedule

/list - visible tasks
/year 2025, /prev, /next - switch year
/filter type=插画 status=pending month=3
/search text, /reset - search and clear filters
/show id, /stats, /export
/add type=插画 month=3 status=未确认 artists=A,B
/edit id key=value..., /delete id

Version: %s`, version.String())

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Prev year", "cmd_prev"),
			tgbotapi.NewInlineKeyboardButtonData("Next year ▶️", "cmd_next"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 List", "cmd_list"),
			tgbotapi.NewInlineKeyboardButtonData("📊 Stats", "cmd_stats"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📤 Export", "cmd_export"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard

	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) error {
	callback := tgbotapi.NewCallback(update.CallbackQuery.ID, "")
	if _, err := b.api.Request(callback); err != nil {
		b.log.Logf("[WARN] answering callback query: %v", err)
	}

	data := update.CallbackQuery.Data
	if update.CallbackQuery.Message == nil || update.CallbackQuery.Message.Chat == nil {
		return nil
	}
	chatID := update.CallbackQuery.Message.Chat.ID

	switch data {
	case "cmd_prev":
		return b.stepYear(chatID, -1)
	case "cmd_next":
		return b.stepYear(chatID, 1)
	case "cmd_list":
		return b.reply(chatID, formatView(b.sched.Snapshot()))
	case "cmd_stats":
		return b.reply(chatID, formatStats(report.Compute(b.sched.Visible())))
	case "cmd_export":
		return b.exportCommand(ctx, chatID)
	}

	action, idArg, ok := strings.Cut(data, ":")
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return nil
	}

	switch action {
	case "delete_confirm":
		if !b.canEdit(update.CallbackQuery.From) {
			return b.reply(chatID, "⛔️ Only admins can change tasks.")
		}
		deleted, err := b.sched.Delete(ctx, id, func(model.Task) bool { return true })
		if err != nil {
			return b.replyTaskError(chatID, err)
		}
		if deleted {
			b.log.Logf("[DEBUG] deleted task id=%d", id)
			return b.reply(chatID, "🗑 Task deleted.")
		}
		return nil
	case "delete_cancel":
		return b.reply(chatID, "Deletion cancelled.")
	default:
		return nil
	}
}

type botLogger struct {
	l lgr.L
}

func (l botLogger) Printf(format string, args ...interface{}) {
	l.l.Logf("[DEBUG] tg: "+format, args...)
}

func (l botLogger) Println(v ...interface{}) {
	l.l.Logf("[DEBUG] tg: %s", strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}
