package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agalitsyn/artist-scheduler/internal/model"
)

// Buckets is the persisted and exported document shape: tasks grouped by year.
type Buckets map[model.Year][]model.Task

func Group(tasks []model.Task) Buckets {
	b := make(Buckets)
	for _, t := range tasks {
		b[t.Year] = append(b[t.Year], t)
	}
	return b
}

// Flatten re-attaches the bucket year to every task. Buckets are visited in
// ascending year order, tasks keep their order inside a bucket.
func (b Buckets) Flatten() []model.Task {
	years := make([]model.Year, 0, len(b))
	for y := range b {
		years = append(years, y)
	}
	sort.Slice(years, func(i, j int) bool { return lessYear(years[i], years[j]) })

	var tasks []model.Task
	for _, y := range years {
		for _, t := range b[y] {
			t.Year = y
			t.Normalize()
			tasks = append(tasks, t)
		}
	}
	return tasks
}

func Encode(tasks []model.Task) ([]byte, error) {
	return json.Marshal(Group(tasks))
}

func EncodeIndent(tasks []model.Task) ([]byte, error) {
	return json.MarshalIndent(Group(tasks), "", "  ")
}

func Decode(data []byte) ([]model.Task, error) {
	var b Buckets
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("could not decode tasks: %w", err)
	}
	if b == nil {
		return nil, fmt.Errorf("could not decode tasks: document is null")
	}
	return b.Flatten(), nil
}

func lessYear(a, b model.Year) bool {
	ai, aerr := a.Int()
	bi, berr := b.Int()
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
