package schedule

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/artist-scheduler/internal/model"
	"github.com/agalitsyn/artist-scheduler/internal/seed"
)

// Snapshot is what a presentation layer needs to redraw.
type Snapshot struct {
	Filter      model.TaskFilter `json:"filter"`
	CurrentYear int              `json:"currentYear"`
	Visible     []model.Task     `json:"visible"`
	Total       int              `json:"total"`
}

// ConfirmFunc is asked before a task is deleted.
type ConfirmFunc func(task model.Task) bool

// Schedule owns the task list, the filter state and the visible subset.
// Every mutation persists the whole list, recomputes the visible subset and
// then notifies subscribers.
type Schedule struct {
	repo model.TaskRepository
	log  lgr.L
	now  func() time.Time

	mu          sync.RWMutex
	tasks       []model.Task
	filtered    []model.Task
	filter      model.TaskFilter
	currentYear int

	subsMu  sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

type Option func(*Schedule)

func WithLogger(l lgr.L) Option {
	return func(s *Schedule) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Schedule) { s.now = now }
}

func New(repo model.TaskRepository, opts ...Option) *Schedule {
	s := &Schedule{
		repo:     repo,
		log:      lgr.NoOp,
		now:      time.Now,
		tasks:    []model.Task{},
		filtered: []model.Task{},
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.currentYear = s.now().Year()
	return s
}

// Hydrate loads stored tasks, falling back to the seed dataset which is then
// persisted right away. A seed failure is fatal for the caller. Tasks repaired
// on the way in are written back so ids stay stable across runs.
func (s *Schedule) Hydrate(ctx context.Context, seeds seed.Loader) error {
	tasks, ok := s.repo.LoadTasks(ctx)
	seeded := false
	if !ok {
		var err error
		tasks, err = seeds.LoadSeed(ctx)
		if err != nil {
			return fmt.Errorf("could not load seed data: %w", err)
		}
		s.log.Logf("[INFO] no stored tasks, seeded %d tasks", len(tasks))
		seeded = true
	}

	tasks, repaired := s.ingest(tasks)
	if seeded || repaired {
		if !s.repo.SaveTasks(ctx, tasks) {
			s.log.Logf("[WARN] loaded tasks are not persisted, they will be read again on next start")
		}
	}

	s.mu.Lock()
	s.tasks = tasks
	s.currentYear = s.initialYear()
	s.filter = model.TaskFilter{Year: yearOf(s.currentYear)}
	s.recompute()
	snap := s.snapshot()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// ingest normalizes loaded tasks. Unknown statuses become unconfirmed and
// duplicate or zero ids are reassigned. It reports whether anything was
// repaired.
func (s *Schedule) ingest(tasks []model.Task) ([]model.Task, bool) {
	out := make([]model.Task, 0, len(tasks))
	seen := make(map[int64]struct{}, len(tasks))
	repaired := false
	for _, t := range tasks {
		t.Normalize()
		if !t.Status.Valid() {
			s.log.Logf("[WARN] task %d has unknown status %q, treated as %s", t.ID, t.Status, model.StatusUnconfirmed)
			t.Status = model.StatusUnconfirmed
			repaired = true
		}
		if _, dup := seen[t.ID]; dup || t.ID == 0 {
			old := t.ID
			t.ID = s.nextIDIn(seen)
			s.log.Logf("[WARN] task id %d is not unique, reassigned to %d", old, t.ID)
			repaired = true
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out, repaired
}

// initialYear prefers the current calendar year, then the latest year present.
func (s *Schedule) initialYear() int {
	now := s.now().Year()
	years := Years(s.tasks)
	if len(years) == 0 || slices.Contains(years, now) {
		return now
	}
	return years[len(years)-1]
}

func (s *Schedule) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Schedule) notify(snap Snapshot) {
	s.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// recompute must be called with mu held for writing.
func (s *Schedule) recompute() {
	s.filtered = Apply(s.tasks, s.filter)
}

func (s *Schedule) snapshot() Snapshot {
	return Snapshot{
		Filter:      s.filter,
		CurrentYear: s.currentYear,
		Visible:     cloneTasks(s.filtered),
		Total:       len(s.tasks),
	}
}

func (s *Schedule) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Schedule) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.tasks)
}

func (s *Schedule) Visible() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.filtered)
}

func (s *Schedule) Filter() model.TaskFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

func (s *Schedule) CurrentYear() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentYear
}

func (s *Schedule) Years() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Years(s.tasks)
}

func (s *Schedule) Options() model.TaskOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Options(s.tasks)
}

// SetFilter replaces the filter state. A set year also moves the year cursor.
func (s *Schedule) SetFilter(f model.TaskFilter) {
	f = NormalizeFilter(f)

	s.mu.Lock()
	s.filter = f
	if y, err := f.Year.Int(); err == nil {
		s.currentYear = y
	}
	s.recompute()
	snap := s.snapshot()
	s.mu.Unlock()

	s.notify(snap)
}

// NormalizeFilter maps status aliases and bare month numbers onto their
// canonical labels. Unknown values are kept so they simply match nothing.
func NormalizeFilter(f model.TaskFilter) model.TaskFilter {
	if f.Status != "" {
		if st, err := model.ParseStatus(string(f.Status)); err == nil {
			f.Status = st
		}
	}
	if f.Month != "" {
		if m, err := model.ParseMonth(string(f.Month)); err == nil {
			f.Month = m
		}
	}
	return f
}

// StepYear moves the year cursor by delta among the years present in the
// task list. It reports false and changes nothing past either end.
func (s *Schedule) StepYear(delta int) bool {
	s.mu.Lock()
	years := Years(s.tasks)
	idx := slices.Index(years, s.currentYear)
	next := idx + delta
	if next < 0 || next >= len(years) {
		s.mu.Unlock()
		return false
	}

	s.currentYear = years[next]
	s.filter.Year = yearOf(s.currentYear)
	s.recompute()
	snap := s.snapshot()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

func (s *Schedule) Get(id int64) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Task{}, model.ErrTaskNotFound
	}
	return cloneTask(s.tasks[i]), nil
}

func (s *Schedule) Create(ctx context.Context, t model.Task) (model.Task, error) {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	t.ID = s.nextID()
	s.tasks = append(s.tasks, t)
	s.commit(ctx, "create", t.ID)
	snap := s.snapshot()
	s.mu.Unlock()

	s.notify(snap)
	return cloneTask(t), nil
}

// Update replaces the whole record, only the id survives.
func (s *Schedule) Update(ctx context.Context, id int64, t model.Task) (model.Task, error) {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Task{}, model.ErrTaskNotFound
	}
	t.ID = id
	s.tasks[i] = t
	s.commit(ctx, "update", id)
	snap := s.snapshot()
	s.mu.Unlock()

	s.notify(snap)
	return cloneTask(t), nil
}

// Delete removes the task once confirm agrees. Declining returns false and
// leaves everything untouched.
func (s *Schedule) Delete(ctx context.Context, id int64, confirm ConfirmFunc) (bool, error) {
	task, err := s.Get(id)
	if err != nil {
		return false, err
	}
	if confirm == nil || !confirm(task) {
		s.log.Logf("[DEBUG] delete of task %d declined", id)
		return false, nil
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false, model.ErrTaskNotFound
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)
	s.commit(ctx, "delete", id)
	snap := s.snapshot()
	s.mu.Unlock()

	s.notify(snap)
	return true, nil
}

func (s *Schedule) commit(ctx context.Context, op string, id int64) {
	if !s.repo.SaveTasks(ctx, s.tasks) {
		s.log.Logf("[WARN] %s of task %d is kept in memory only", op, id)
	}
	s.recompute()
	s.log.Logf("[DEBUG] %s task %d, %d of %d visible", op, id, len(s.filtered), len(s.tasks))
}

func (s *Schedule) indexOf(id int64) int {
	return slices.IndexFunc(s.tasks, func(t model.Task) bool { return t.ID == id })
}

func (s *Schedule) nextID() int64 {
	seen := make(map[int64]struct{}, len(s.tasks))
	for _, t := range s.tasks {
		seen[t.ID] = struct{}{}
	}
	return s.nextIDIn(seen)
}

// nextIDIn starts from the clock in milliseconds and bumps by one until free.
func (s *Schedule) nextIDIn(seen map[int64]struct{}) int64 {
	id := s.now().UnixMilli()
	for {
		if _, taken := seen[id]; !taken {
			return id
		}
		id++
	}
}

func yearOf(y int) model.Year {
	return model.Year(strconv.Itoa(y))
}

func cloneTask(t model.Task) model.Task {
	t.Artists = slices.Clone(t.Artists)
	t.ArtistsTemp = slices.Clone(t.ArtistsTemp)
	return t
}

func cloneTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = cloneTask(t)
	}
	return out
}
