package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/agalitsyn/artist-scheduler/internal/model"
)

var (
	pendingColor     = color.New(color.FgGreen)
	unconfirmedColor = color.New(color.FgYellow)
	headerColor      = color.New(color.Bold)
	dimColor         = color.New(color.Faint)
)

func statusLabel(s model.Status) string {
	label := s.Display()
	switch label {
	case string(model.StatusPending):
		return pendingColor.Sprint(label)
	case string(model.StatusUnconfirmed):
		return unconfirmedColor.Sprint(label)
	default:
		return label
	}
}

func artistsLine(t model.Task) string {
	s := strings.Join(t.Artists, "、")
	if s == "" {
		s = "-"
	}
	if len(t.ArtistsTemp) > 0 {
		s += dimColor.Sprintf(" (暂定: %s)", strings.Join(t.ArtistsTemp, "、"))
	}
	return s
}

// List prints one line per task.
func List(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks match")
		return
	}
	for _, t := range tasks {
		loc := ""
		if t.Location != "" {
			loc = " @" + t.Location
		}
		fmt.Fprintf(w, "%d\t%s %s\t%s%s\t%s\t%s\n", t.ID, t.Year, t.Month, t.Type, loc, artistsLine(t), statusLabel(t.Status))
	}
}

// Detail prints every field of a single task.
func Detail(w io.Writer, t model.Task) {
	row := func(k, v string) {
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(w, "%-10s %s\n", headerColor.Sprint(k), v)
	}
	row("id", fmt.Sprint(t.ID))
	row("year", string(t.Year))
	row("month", string(t.Month))
	row("type", t.Type)
	row("location", t.Location)
	row("artists", strings.Join(t.Artists, "、"))
	row("tentative", strings.Join(t.ArtistsTemp, "、"))
	row("status", statusLabel(t.Status))
	row("notes", t.Notes)
}

// Calendar groups tasks by year and month in calendar order.
func Calendar(w io.Writer, tasks []model.Task) {
	byYear := make(map[model.Year]map[model.Month][]model.Task)
	var years []model.Year
	for _, t := range tasks {
		if _, ok := byYear[t.Year]; !ok {
			byYear[t.Year] = make(map[model.Month][]model.Task)
			years = append(years, t.Year)
		}
		byYear[t.Year][t.Month] = append(byYear[t.Year][t.Month], t)
	}

	for _, y := range years {
		headerColor.Fprintf(w, "%s年\n", y)
		for _, m := range model.Months {
			ts := byYear[y][m]
			if len(ts) == 0 {
				continue
			}
			fmt.Fprintf(w, "  %s\n", m)
			for _, t := range ts {
				fmt.Fprintf(w, "    %s  %s  %s\n", t.Type, artistsLine(t), statusLabel(t.Status))
			}
		}
	}
}

// Gantt draws one row per task with its month marked on a twelve slot bar.
func Gantt(w io.Writer, tasks []model.Task) {
	fmt.Fprintf(w, "%-24s %s\n", "", "123456789012")
	for _, t := range tasks {
		bar := []rune(strings.Repeat("·", len(model.Months)))
		if i := t.Month.Index(); i >= 0 {
			bar[i] = '█'
		}
		label := fmt.Sprintf("%s %s", t.Year, t.Type)
		fmt.Fprintf(w, "%-24s %s %s\n", truncate(label, 24), string(bar), statusLabel(t.Status))
	}
}

// Dashboard prints the stats summary.
func Dashboard(w io.Writer, st Stats) {
	headerColor.Fprintln(w, "Summary")
	fmt.Fprintf(w, "  total %d, %s %d, %s %d\n",
		st.Total,
		statusLabel(model.StatusPending), st.Pending,
		statusLabel(model.StatusUnconfirmed), st.Unconfirmed,
	)

	section := func(title string, counts []Count) {
		if len(counts) == 0 {
			return
		}
		headerColor.Fprintln(w, title)
		for _, c := range counts {
			fmt.Fprintf(w, "  %-16s %d\n", c.Label, c.Count)
		}
	}
	section("By month", st.ByMonth)
	section("By type", st.ByType)
	section("By artist", Top(st.ByArtist, 15))
	section("By location", st.ByLocation)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
