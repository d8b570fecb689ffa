package app

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agalitsyn/artist-scheduler/internal/model"
	"github.com/agalitsyn/artist-scheduler/internal/report"
	"github.com/agalitsyn/artist-scheduler/internal/schedule"
)

// maxListed keeps replies under the telegram message size limit.
const maxListed = 40

func formatView(snap schedule.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓 %d年", snap.CurrentYear)
	if desc := describeFilter(snap.Filter); desc != "" {
		fmt.Fprintf(&sb, " · %s", desc)
	}
	fmt.Fprintf(&sb, "\n%d of %d tasks\n", len(snap.Visible), snap.Total)

	if len(snap.Visible) == 0 {
		sb.WriteString("\n📭 No tasks match.")
		return sb.String()
	}
	sb.WriteString("\n")
	for i, t := range snap.Visible {
		if i == maxListed {
			fmt.Fprintf(&sb, "…and %d more\n", len(snap.Visible)-maxListed)
			break
		}
		sb.WriteString(formatTaskLine(t))
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func describeFilter(f model.TaskFilter) string {
	var parts []string
	if f.Type != "" {
		parts = append(parts, f.Type)
	}
	if f.Month != "" {
		parts = append(parts, string(f.Month))
	}
	if f.Status != "" {
		parts = append(parts, f.Status.Display())
	}
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("%q", f.Search))
	}
	return strings.Join(parts, " · ")
}

func formatTaskLine(t model.Task) string {
	line := fmt.Sprintf("%s %s · %s", statusIcon(t.Status), t.Month, t.Type)
	if t.Location != "" {
		line += " @" + t.Location
	}
	if len(t.Artists) > 0 {
		line += " · " + strings.Join(t.Artists, "、")
	}
	if len(t.ArtistsTemp) > 0 {
		line += " (暂定: " + strings.Join(t.ArtistsTemp, "、") + ")"
	}
	return line + fmt.Sprintf(" [%d]", t.ID)
}

func statusIcon(s model.Status) string {
	if s.Display() == string(model.StatusPending) {
		return "🟢"
	}
	return "🟡"
}

func formatTaskDetail(t model.Task) string {
	orDash := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}
	title := cases.Title(language.Und).String(t.Status.StringLocalized())
	return strings.Join([]string{
		fmt.Sprintf("#%d %s", t.ID, t.Type),
		fmt.Sprintf("📅 %s %s", t.Year, t.Month),
		fmt.Sprintf("📍 %s", orDash(t.Location)),
		fmt.Sprintf("👥 %s", orDash(strings.Join(t.Artists, "、"))),
		fmt.Sprintf("❔ %s", orDash(strings.Join(t.ArtistsTemp, "、"))),
		fmt.Sprintf("%s %s (%s)", statusIcon(t.Status), t.Status.Display(), title),
		fmt.Sprintf("📝 %s", orDash(t.Notes)),
	}, "\n")
}

func formatYears(years []int, current int) string {
	if len(years) == 0 {
		return "No tasks yet."
	}
	parts := make([]string, 0, len(years))
	for _, y := range years {
		if y == current {
			parts = append(parts, fmt.Sprintf("[%d]", y))
			continue
		}
		parts = append(parts, strconv.Itoa(y))
	}
	return "Years: " + strings.Join(parts, " ")
}

func formatStats(st report.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 %d tasks · 🟢 %d pending · 🟡 %d unconfirmed\n", st.Total, st.Pending, st.Unconfirmed)

	section := func(title string, counts []report.Count) {
		if len(counts) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n%s\n", title)
		for _, c := range counts {
			if c.Count == 0 {
				continue
			}
			fmt.Fprintf(&sb, "  %s: %d\n", c.Label, c.Count)
		}
	}
	section("By month", st.ByMonth)
	section("By type", st.ByType)
	section("By artist", report.Top(st.ByArtist, 15))
	section("By location", st.ByLocation)
	return strings.TrimSuffix(sb.String(), "\n")
}

type keyValue struct {
	key, value string
}

// splitArgs parses "key=value" pairs. Words without "=" continue the previous
// value, so "notes=two words" keeps both words.
func splitArgs(args string) ([]keyValue, error) {
	var pairs []keyValue
	for _, word := range strings.Fields(args) {
		key, value, ok := strings.Cut(word, "=")
		if !ok {
			if len(pairs) == 0 {
				return nil, fmt.Errorf("expected key=value, got %q", word)
			}
			pairs[len(pairs)-1].value += " " + word
			continue
		}
		pairs = append(pairs, keyValue{key: strings.ToLower(key), value: value})
	}
	return pairs, nil
}

// parseFilter applies "key=value" pairs over f. An empty value clears the key.
func parseFilter(f model.TaskFilter, args string) (model.TaskFilter, error) {
	pairs, err := splitArgs(args)
	if err != nil {
		return f, err
	}
	for _, kv := range pairs {
		key, value := kv.key, kv.value
		switch key {
		case "year":
			f.Year = model.Year(value)
		case "type":
			f.Type = value
		case "status":
			f.Status = model.Status(value)
		case "month":
			f.Month = model.Month(value)
		case "q", "search":
			f.Search = value
		default:
			return f, fmt.Errorf("unknown filter %q", key)
		}
	}
	return schedule.NormalizeFilter(f), nil
}

// applyTaskArgs overrides fields of t with "key=value" pairs.
func applyTaskArgs(t model.Task, args string) (model.Task, error) {
	pairs, err := splitArgs(args)
	if err != nil {
		return t, err
	}
	for _, kv := range pairs {
		key, value := kv.key, kv.value
		switch key {
		case "year":
			t.Year = model.Year(value)
		case "month":
			m, err := model.ParseMonth(value)
			if err != nil {
				return t, err
			}
			t.Month = m
		case "type":
			t.Type = value
		case "status":
			st, err := model.ParseStatus(value)
			if err != nil {
				return t, err
			}
			t.Status = st
		case "location":
			t.Location = value
		case "artists":
			t.Artists = model.ParseNames(value)
		case "temp", "tentative":
			t.ArtistsTemp = model.ParseNames(value)
		case "notes":
			t.Notes = value
		default:
			return t, fmt.Errorf("unknown field %q", key)
		}
	}
	return t, nil
}
