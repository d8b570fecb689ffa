package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidTask  = errors.New("invalid task")
)

type Task struct {
	ID          int64    `json:"id" yaml:"id"`
	Year        Year     `json:"year" yaml:"year"`
	Month       Month    `json:"month" yaml:"month"`
	Type        string   `json:"type" yaml:"type"`
	Location    string   `json:"location,omitempty" yaml:"location,omitempty"`
	Artists     []string `json:"artists" yaml:"artists"`
	ArtistsTemp []string `json:"artistsTemp,omitempty" yaml:"artistsTemp,omitempty"`
	Status      Status   `json:"status" yaml:"status"`
	Notes       string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	// Partner only shows up in older datasets; it is searchable but never edited.
	Partner string `json:"partner,omitempty" yaml:"partner,omitempty"`
}

// Normalize trims free text, drops blank participant names and collapses
// legacy status literals. Artists is never nil afterwards, ArtistsTemp is nil
// when empty.
func (t *Task) Normalize() {
	t.Year = Year(strings.TrimSpace(string(t.Year)))
	t.Month = Month(strings.TrimSpace(string(t.Month)))
	t.Type = strings.TrimSpace(t.Type)
	t.Location = strings.TrimSpace(t.Location)
	t.Notes = strings.TrimSpace(t.Notes)
	t.Partner = strings.TrimSpace(t.Partner)

	t.Artists = cleanNames(t.Artists)
	if t.Artists == nil {
		t.Artists = []string{}
	}
	t.ArtistsTemp = cleanNames(t.ArtistsTemp)

	if st, err := ParseStatus(string(t.Status)); err == nil {
		t.Status = st
	}
}

func (t Task) Validate() error {
	if t.Year == "" {
		return fmt.Errorf("%w: year is required", ErrInvalidTask)
	}
	if _, err := t.Year.Int(); err != nil {
		return fmt.Errorf("%w: year %q is not a 4-digit year", ErrInvalidTask, t.Year)
	}
	if t.Month == "" {
		return fmt.Errorf("%w: month is required", ErrInvalidTask)
	}
	if t.Month.Index() < 0 {
		return fmt.Errorf("%w: unknown month %q", ErrInvalidTask, t.Month)
	}
	if t.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidTask)
	}
	if t.Status == "" {
		return fmt.Errorf("%w: status is required", ErrInvalidTask)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, t.Status)
	}
	return nil
}

// ParseNames splits delimited form input into participant names.
func ParseNames(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，' || r == '、'
	})
	return cleanNames(parts)
}

func cleanNames(names []string) []string {
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Year is kept as text because it doubles as the persistence bucket key.
type Year string

func (y Year) Int() (int, error) {
	if len(y) != 4 {
		return 0, fmt.Errorf("year %q: want 4 digits", string(y))
	}
	return strconv.Atoi(string(y))
}

func (y *Year) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*y = Year(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("year must be a string or a number: %w", err)
	}
	*y = Year(s)
	return nil
}

func (y *Year) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("year must be a scalar, got kind %d", value.Kind)
	}
	*y = Year(value.Value)
	return nil
}

type Month string

var Months = []Month{"1月", "2月", "3月", "4月", "5月", "6月", "7月", "8月", "9月", "10月", "11月", "12月"}

// Index returns the zero-based position in Months or -1.
func (m Month) Index() int {
	for i, v := range Months {
		if v == m {
			return i
		}
	}
	return -1
}

// ParseMonth accepts both "3月" and "3".
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	m := Month(s)
	if m.Index() >= 0 {
		return m, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 12 {
		return "", fmt.Errorf("%w: unknown month %q", ErrInvalidTask, s)
	}
	return Months[n-1], nil
}

type TaskFilter struct {
	Year   Year   `json:"year" form:"year"`
	Type   string `json:"type" form:"type"`
	Status Status `json:"status" form:"status"`
	Month  Month  `json:"month" form:"month"`
	Search string `json:"search" form:"q"`
}

func (f TaskFilter) IsZero() bool {
	return f == TaskFilter{}
}

// TaskOptions lists selectable values for filter controls.
type TaskOptions struct {
	Years    []Year   `json:"years"`
	Types    []string `json:"types"`
	Statuses []Status `json:"statuses"`
	Months   []Month  `json:"months"`
}

type TaskRepository interface {
	LoadTasks(ctx context.Context) ([]Task, bool)
	SaveTasks(ctx context.Context, tasks []Task) bool
}
