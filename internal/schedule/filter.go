package schedule

import (
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agalitsyn/artist-scheduler/internal/model"
)

// Apply returns the tasks passing every set equality filter and the search
// term, in their original order. It never aliases the input slice.
func Apply(tasks []model.Task, f model.TaskFilter) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if MatchEquality(t, f) {
			out = append(out, t)
		}
	}
	return Search(out, f.Search)
}

func MatchEquality(t model.Task, f model.TaskFilter) bool {
	if f.Year != "" && t.Year != f.Year {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Month != "" && t.Month != f.Month {
		return false
	}
	return true
}

func Match(t model.Task, f model.TaskFilter) bool {
	return MatchEquality(t, f) && MatchSearch(t, f.Search)
}

// Search narrows tasks to those whose searchable text contains term,
// ignoring case.
func Search(tasks []model.Task, term string) []model.Task {
	if term == "" {
		return tasks
	}
	out := tasks[:0:0]
	for _, t := range tasks {
		if MatchSearch(t, term) {
			out = append(out, t)
		}
	}
	return out
}

func MatchSearch(t model.Task, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(fold(searchText(t)), fold(term))
}

// searchText covers type, partner, location and confirmed artists.
// Tentative artists are deliberately left out.
func searchText(t model.Task) string {
	parts := make([]string, 0, 3+len(t.Artists))
	for _, p := range []string{t.Type, t.Partner, t.Location} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	for _, a := range t.Artists {
		if a != "" {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, " ")
}

func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Years lists distinct task years ascending.
func Years(tasks []model.Task) []int {
	seen := make(map[int]struct{})
	var years []int
	for _, t := range tasks {
		y, err := t.Year.Int()
		if err != nil {
			continue
		}
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Options collects the values filter controls offer: years newest first,
// types in first-seen order and the fixed month and status lists.
func Options(tasks []model.Task) model.TaskOptions {
	opts := model.TaskOptions{
		Years:    []model.Year{},
		Types:    []string{},
		Statuses: slices.Clone(model.Statuses),
		Months:   slices.Clone(model.Months),
	}

	years := Years(tasks)
	for i := len(years) - 1; i >= 0; i-- {
		opts.Years = append(opts.Years, yearOf(years[i]))
	}

	seen := make(map[string]struct{})
	for _, t := range tasks {
		if _, ok := seen[t.Type]; ok || t.Type == "" {
			continue
		}
		seen[t.Type] = struct{}{}
		opts.Types = append(opts.Types, t.Type)
	}
	return opts
}
