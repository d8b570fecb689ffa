package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agalitsyn/artist-scheduler/internal/model"
	"github.com/agalitsyn/artist-scheduler/internal/store"
)

const filePrefix = "artist-scheduler"

var csvHeader = []string{"年份", "月份", "类型", "场馆", "画师", "暂定画师", "状态", "备注"}

// JSON produces the year-keyed document used for storage, indented for humans.
func JSON(tasks []model.Task) ([]byte, error) {
	data, err := store.EncodeIndent(tasks)
	if err != nil {
		return nil, fmt.Errorf("could not export json: %w", err)
	}
	return data, nil
}

// WriteCSV writes a BOM-prefixed sheet where every cell is quoted and list
// fields are joined with ";".
func WriteCSV(w io.Writer, tasks []model.Task) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("\ufeff")
	writeRow(bw, csvHeader, false)
	for _, t := range tasks {
		writeRow(bw, []string{
			string(t.Year),
			string(t.Month),
			t.Type,
			t.Location,
			strings.Join(t.Artists, ";"),
			strings.Join(t.ArtistsTemp, ";"),
			t.Status.Display(),
			t.Notes,
		}, true)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("could not export csv: %w", err)
	}
	return nil
}

func writeRow(w *bufio.Writer, cells []string, quote bool) {
	for i, c := range cells {
		if i > 0 {
			w.WriteByte(',')
		}
		if quote {
			w.WriteByte('"')
			w.WriteString(strings.ReplaceAll(c, `"`, `""`))
			w.WriteByte('"')
		} else {
			w.WriteString(c)
		}
	}
	w.WriteByte('\n')
}

func CSV(tasks []model.Task) ([]byte, error) {
	var sb strings.Builder
	if err := WriteCSV(&sb, tasks); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func FileName(now time.Time, ext string) string {
	return fmt.Sprintf("%s-%s.%s", filePrefix, now.Format("2006-01-02"), ext)
}

// WriteBundle writes the JSON and then the CSV export into dir. It stops at
// the first failure and returns the files written so far.
func WriteBundle(ctx context.Context, dir string, now time.Time, tasks []model.Task) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create export dir: %w", err)
	}

	steps := []struct {
		ext    string
		render func([]model.Task) ([]byte, error)
	}{
		{"json", JSON},
		{"csv", CSV},
	}

	var written []string
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		data, err := step.render(tasks)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, FileName(now, step.ext))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("could not write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
