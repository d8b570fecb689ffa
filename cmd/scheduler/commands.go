package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/artist-scheduler/internal/app"
	"github.com/agalitsyn/artist-scheduler/internal/httpapi"
	"github.com/agalitsyn/artist-scheduler/internal/model"
	"github.com/agalitsyn/artist-scheduler/internal/report"
	"github.com/agalitsyn/artist-scheduler/internal/schedule"
)

var errUnknownCommand = errors.New("unknown command")

func run(ctx context.Context, cfg Config, sched *schedule.Schedule, in io.Reader, out io.Writer) error {
	switch cfg.Command {
	case "list":
		return listCommand(sched, cfg.Args, out, false)
	case "stats":
		return listCommand(sched, cfg.Args, out, true)
	case "years":
		return yearsCommand(sched, out)
	case "show":
		return showCommand(sched, cfg.Args, out)
	case "add":
		return addCommand(ctx, sched, cfg.Args, out)
	case "edit":
		return editCommand(ctx, sched, cfg.Args, out)
	case "delete":
		return deleteCommand(ctx, sched, cfg.Args, in, out)
	case "export":
		return exportCommand(ctx, sched, cfg.Args, out)
	case "serve":
		srv := httpapi.NewServer(httpapi.Config{
			Addr:  cfg.HTTP.Addr,
			Token: cfg.HTTP.Token.Unmask(),
		}, sched, lgr.Default())
		return srv.Run(ctx)
	case "bot":
		if cfg.Telegram.Token.Unmask() == "" {
			return errors.New("telegram token is required, set -tg-token")
		}
		bot, err := app.NewBot(app.BotConfig{
			UpdateTimeout: cfg.Telegram.UpdateTimeout,
			Admins:        cfg.Telegram.Admins,
			NotifyChatID:  cfg.Telegram.NotifyChatID,
			ExportPause:   cfg.Telegram.ExportPause,
		}, cfg.Telegram.Token.Unmask(), lgr.Default(), sched)
		if err != nil {
			return fmt.Errorf("could not start bot: %w", err)
		}
		bot.SetDebug(cfg.Debug)
		lgr.Printf("[INFO] authorized on account %s", bot.Username())
		bot.Start(ctx)
		return nil
	default:
		return fmt.Errorf("%w %q, see -help", errUnknownCommand, cfg.Command)
	}
}

type filterFlags struct {
	year, typ, status, month, search string
	allYears                         bool
	step                             int
}

func (ff *filterFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&ff.year, "year", "", "Year to show.")
	fs.StringVar(&ff.typ, "type", "", "Task type.")
	fs.StringVar(&ff.status, "status", "", "Status: 待开始, 未确认 or pending, unconfirmed.")
	fs.StringVar(&ff.month, "month", "", "Month, 3 or 3月.")
	fs.StringVar(&ff.search, "q", "", "Search type, partner, location and artists.")
	fs.BoolVar(&ff.allYears, "all-years", false, "Do not restrict by year.")
	fs.IntVar(&ff.step, "step", 0, "Move the year cursor by this many years.")
}

func (ff *filterFlags) apply(sched *schedule.Schedule) error {
	f := sched.Filter()
	if ff.year != "" {
		if _, err := model.Year(ff.year).Int(); err != nil {
			return err
		}
		f.Year = model.Year(ff.year)
	}
	if ff.allYears {
		f.Year = ""
	}
	if ff.typ != "" {
		f.Type = ff.typ
	}
	if ff.status != "" {
		f.Status = model.Status(ff.status)
	}
	if ff.month != "" {
		f.Month = model.Month(ff.month)
	}
	if ff.search != "" {
		f.Search = ff.search
	}
	sched.SetFilter(f)

	if ff.step != 0 && !sched.StepYear(ff.step) {
		return fmt.Errorf("no year %d steps away from %d", ff.step, sched.CurrentYear())
	}
	return nil
}

func listCommand(sched *schedule.Schedule, args []string, out io.Writer, dashboard bool) error {
	var ff filterFlags
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	ff.register(fs)
	view := fs.String("view", "list", "View: list, calendar or gantt.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := ff.apply(sched); err != nil {
		return err
	}

	snap := sched.Snapshot()
	if dashboard {
		report.Dashboard(out, report.Compute(snap.Visible))
		return nil
	}

	fmt.Fprintf(out, "%d年 · %d of %d tasks\n\n", snap.CurrentYear, len(snap.Visible), snap.Total)
	switch *view {
	case "list":
		report.List(out, snap.Visible)
	case "calendar":
		report.Calendar(out, snap.Visible)
	case "gantt":
		report.Gantt(out, snap.Visible)
	default:
		return fmt.Errorf("unknown view %q", *view)
	}
	return nil
}

func yearsCommand(sched *schedule.Schedule, out io.Writer) error {
	years := sched.Years()
	if len(years) == 0 {
		fmt.Fprintln(out, "No tasks yet.")
		return nil
	}
	current := sched.CurrentYear()
	for _, y := range years {
		mark := " "
		if y == current {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %d\n", mark, y)
	}
	return nil
}

func showCommand(sched *schedule.Schedule, args []string, out io.Writer) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	t, err := sched.Get(id)
	if err != nil {
		return err
	}
	report.Detail(out, t)
	return nil
}

type taskFlags struct {
	year, month, typ, status, location, artists, temp, notes string
}

func (tf *taskFlags) register(fs *flag.FlagSet, defaultYear string) {
	fs.StringVar(&tf.year, "year", defaultYear, "Year, e.g. 2025.")
	fs.StringVar(&tf.month, "month", "", "Month, 3 or 3月.")
	fs.StringVar(&tf.typ, "type", "", "Task type.")
	fs.StringVar(&tf.status, "status", string(model.StatusPending), "Status: 待开始, 未确认 or pending, unconfirmed.")
	fs.StringVar(&tf.location, "location", "", "Venue.")
	fs.StringVar(&tf.artists, "artists", "", "Confirmed artists separated by commas.")
	fs.StringVar(&tf.temp, "temp", "", "Tentative artists separated by commas.")
	fs.StringVar(&tf.notes, "notes", "", "Free text notes.")
}

// apply copies the flags named in set onto t.
func (tf *taskFlags) apply(t model.Task, set map[string]bool) (model.Task, error) {
	if set["year"] {
		t.Year = model.Year(strings.TrimSpace(tf.year))
	}
	if set["month"] {
		m, err := model.ParseMonth(tf.month)
		if err != nil {
			return t, err
		}
		t.Month = m
	}
	if set["type"] {
		t.Type = strings.TrimSpace(tf.typ)
	}
	if set["status"] {
		st, err := model.ParseStatus(tf.status)
		if err != nil {
			return t, err
		}
		t.Status = st
	}
	if set["location"] {
		t.Location = strings.TrimSpace(tf.location)
	}
	if set["artists"] {
		t.Artists = model.ParseNames(tf.artists)
	}
	if set["temp"] {
		t.ArtistsTemp = model.ParseNames(tf.temp)
	}
	if set["notes"] {
		t.Notes = tf.notes
	}
	return t, nil
}

func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func addCommand(ctx context.Context, sched *schedule.Schedule, args []string, out io.Writer) error {
	var tf taskFlags
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	tf.register(fs, strconv.Itoa(sched.CurrentYear()))
	if err := fs.Parse(args); err != nil {
		return err
	}

	// defaults count as set for a new task
	set := visited(fs)
	set["year"], set["status"] = true, true
	t, err := tf.apply(model.Task{}, set)
	if err != nil {
		return err
	}
	created, err := sched.Create(ctx, t)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ task %d added\n", created.ID)
	report.Detail(out, created)
	return nil
}

func editCommand(ctx context.Context, sched *schedule.Schedule, args []string, out io.Writer) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	current, err := sched.Get(id)
	if err != nil {
		return err
	}

	var tf taskFlags
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	tf.register(fs, "")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	t, err := tf.apply(current, visited(fs))
	if err != nil {
		return err
	}
	updated, err := sched.Update(ctx, id, t)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ task %d updated\n", updated.ID)
	report.Detail(out, updated)
	return nil
}

func deleteCommand(ctx context.Context, sched *schedule.Schedule, args []string, in io.Reader, out io.Writer) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "Do not ask for confirmation.")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	confirm := func(t model.Task) bool {
		if *yes {
			return true
		}
		report.Detail(out, t)
		fmt.Fprint(out, "Delete this task? [y/N] ")
		answer, _ := bufio.NewReader(in).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}

	deleted, err := sched.Delete(ctx, id, confirm)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}
	fmt.Fprintf(out, "🗑 task %d deleted\n", id)
	return nil
}

func exportCommand(ctx context.Context, sched *schedule.Schedule, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "all", "Format: all, json or csv.")
	dir := fs.String("dir", ".", "Directory the files are written to with -format all.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tasks := sched.Tasks()
	switch *format {
	case "all":
		paths, err := report.WriteBundle(ctx, *dir, time.Now(), tasks)
		for _, p := range paths {
			fmt.Fprintf(out, "📁 %s\n", p)
		}
		return err
	case "json":
		data, err := report.JSON(tasks)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "csv":
		return report.WriteCSV(out, tasks)
	default:
		return fmt.Errorf("unknown export format %q", *format)
	}
}

func idArg(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errors.New("task id is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", args[0])
	}
	return id, nil
}
