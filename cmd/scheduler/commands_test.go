package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agalitsyn/artist-scheduler/internal/model"
	"github.com/agalitsyn/artist-scheduler/internal/schedule"
	"github.com/agalitsyn/artist-scheduler/internal/seed"
)

type memRepo struct{ saved []model.Task }

func (r *memRepo) LoadTasks(context.Context) ([]model.Task, bool) { return nil, false }

func (r *memRepo) SaveTasks(_ context.Context, tasks []model.Task) bool {
	r.saved = append([]model.Task(nil), tasks...)
	return true
}

func newTestSchedule(t *testing.T) (*schedule.Schedule, *memRepo) {
	t.Helper()
	color.NoColor = true

	repo := &memRepo{}
	now := func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	sched := schedule.New(repo, schedule.WithClock(now))
	require.NoError(t, sched.Hydrate(context.Background(), seed.LoaderFunc(func(context.Context) ([]model.Task, error) {
		return []model.Task{
			{ID: 1, Year: "2025", Month: "3月", Type: "插画", Status: model.StatusUnconfirmed, Artists: []string{"A"}},
			{ID: 2, Year: "2025", Month: "5月", Type: "展会", Status: model.StatusPending, Artists: []string{"B"}},
			{ID: 3, Year: "2024", Month: "1月", Type: "插画", Status: model.StatusPending, Artists: []string{}},
		}, nil
	})))
	return sched, repo
}

func runCmd(t *testing.T, sched *schedule.Schedule, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cfg := Config{Command: args[0], Args: args[1:]}
	err := run(context.Background(), cfg, sched, strings.NewReader(stdin), &out)
	return out.String(), err
}

func TestList(t *testing.T) {
	sched, _ := newTestSchedule(t)

	out, err := runCmd(t, sched, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2025年 · 2 of 3 tasks")

	out, err = runCmd(t, sched, "", "list", "-step", "-1")
	require.NoError(t, err)
	assert.Contains(t, out, "2024年 · 1 of 3 tasks")

	_, err = runCmd(t, sched, "", "list", "-step", "-1")
	assert.Error(t, err)

	out, err = runCmd(t, sched, "", "list", "-all-years", "-type", "插画")
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 3 tasks")

	_, err = runCmd(t, sched, "", "list", "-view", "pie")
	assert.Error(t, err)

	_, err = runCmd(t, sched, "", "list", "-year", "25")
	assert.Error(t, err)
}

func TestYears(t *testing.T) {
	sched, _ := newTestSchedule(t)

	out, err := runCmd(t, sched, "", "years")
	require.NoError(t, err)
	assert.Equal(t, "  2024\n* 2025\n", out)
}

func TestAddEdit(t *testing.T) {
	sched, repo := newTestSchedule(t)

	out, err := runCmd(t, sched, "", "add", "-month", "7", "-type", "约稿", "-artists", "C，D")
	require.NoError(t, err)
	assert.Contains(t, out, "added")
	require.Len(t, repo.saved, 4)
	created := repo.saved[3]
	assert.Equal(t, model.Year("2025"), created.Year)
	assert.Equal(t, model.Month("7月"), created.Month)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Equal(t, []string{"C", "D"}, created.Artists)

	_, err = runCmd(t, sched, "", "add", "-type", "约稿")
	assert.ErrorIs(t, err, model.ErrInvalidTask)

	_, err = runCmd(t, sched, "", "edit", "1", "-status", "pending", "-location", "上海")
	require.NoError(t, err)
	got, err := sched.Get(1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, "上海", got.Location)
	assert.Equal(t, "插画", got.Type)
	assert.Equal(t, []string{"A"}, got.Artists)

	_, err = runCmd(t, sched, "", "edit", "999", "-notes", "x")
	assert.ErrorIs(t, err, model.ErrTaskNotFound)
}

func TestDelete(t *testing.T) {
	sched, _ := newTestSchedule(t)

	out, err := runCmd(t, sched, "n\n", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")
	assert.Len(t, sched.Tasks(), 3)

	_, err = runCmd(t, sched, "y\n", "delete", "1")
	require.NoError(t, err)
	assert.Len(t, sched.Tasks(), 2)

	_, err = runCmd(t, sched, "", "delete", "2", "-yes")
	require.NoError(t, err)
	assert.Len(t, sched.Tasks(), 1)

	_, err = runCmd(t, sched, "", "delete")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	sched, _ := newTestSchedule(t)

	out, err := runCmd(t, sched, "", "export", "-format", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "\ufeff年份,月份,类型,场馆,画师,暂定画师,状态,备注\n"))

	dir := t.TempDir()
	out, err = runCmd(t, sched, "", "export", "-dir", dir)
	require.NoError(t, err)
	matches, err := filepath.Glob(filepath.Join(dir, "artist-scheduler-*"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	for _, m := range matches {
		assert.Contains(t, out, m)
		info, err := os.Stat(m)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	}
}

func TestUnknownCommand(t *testing.T) {
	sched, _ := newTestSchedule(t)

	_, err := runCmd(t, sched, "", "frobnicate")
	assert.ErrorIs(t, err, errUnknownCommand)
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 1, 2,,3 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = parseIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseIDs("1,x")
	assert.Error(t, err)
}
