package report

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/agalitsyn/artist-scheduler/internal/model"
)

type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats is the dashboard summary of a task subset.
type Stats struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Unconfirmed int `json:"unconfirmed"`

	// ByMonth always holds all twelve months in calendar order.
	ByMonth    []Count `json:"byMonth"`
	ByType     []Count `json:"byType"`
	ByArtist   []Count `json:"byArtist"`
	ByLocation []Count `json:"byLocation"`
}

// Compute counts statuses by their display label, so legacy "confirmed"
// tasks land in Pending. Tentative artists count towards ByArtist.
func Compute(tasks []model.Task) Stats {
	st := Stats{Total: len(tasks)}

	byMonth := make(map[model.Month]int)
	byType := make(map[string]int)
	byArtist := make(map[string]int)
	byLocation := make(map[string]int)

	for _, t := range tasks {
		switch t.Status.Display() {
		case string(model.StatusPending):
			st.Pending++
		case string(model.StatusUnconfirmed):
			st.Unconfirmed++
		}

		byMonth[t.Month]++
		byType[t.Type]++
		for _, a := range t.Artists {
			byArtist[a]++
		}
		for _, a := range t.ArtistsTemp {
			byArtist[a]++
		}
		if t.Location != "" {
			byLocation[t.Location]++
		}
	}

	st.ByMonth = make([]Count, 0, len(model.Months))
	for _, m := range model.Months {
		st.ByMonth = append(st.ByMonth, Count{Label: string(m), Count: byMonth[m]})
	}
	st.ByType = ranked(byType)
	st.ByArtist = ranked(byArtist)
	st.ByLocation = ranked(byLocation)
	return st
}

// ranked sorts by count descending, ties in collation order.
func ranked(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}

	col := collate.New(language.Chinese)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return col.CompareString(out[i].Label, out[j].Label) < 0
	})
	return out
}

// Top returns at most n leading entries.
func Top(counts []Count, n int) []Count {
	if len(counts) <= n {
		return counts
	}
	return counts[:n]
}
