package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agalitsyn/artist-scheduler/internal/model"
	"github.com/agalitsyn/artist-scheduler/internal/store"
)

var ErrNoSeed = errors.New("seed data unavailable")

//go:embed data.json
var bundled []byte

const maxSeedSize = 8 << 20

// Loader resolves the initial dataset used when nothing is stored yet.
type Loader interface {
	LoadSeed(ctx context.Context) ([]model.Task, error)
}

type LoaderFunc func(ctx context.Context) ([]model.Task, error)

func (f LoaderFunc) LoadSeed(ctx context.Context) ([]model.Task, error) {
	return f(ctx)
}

// Source picks a loader for src: empty means the bundled dataset, an http(s)
// URL is fetched, anything else is read as a file.
func Source(src string, client *http.Client) Loader {
	switch {
	case src == "":
		return Bundled()
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return &URLLoader{URL: src, Client: client}
	default:
		return FileLoader(src)
	}
}

func Bundled() Loader {
	return LoaderFunc(func(context.Context) ([]model.Task, error) {
		return Parse(bundled, "data.json")
	})
}

type FileLoader string

func (f FileLoader) LoadSeed(context.Context) ([]model.Task, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSeed, err)
	}
	return Parse(data, string(f))
}

type URLLoader struct {
	URL    string
	Client *http.Client
}

func (l *URLLoader) LoadSeed(ctx context.Context) ([]model.Task, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSeed, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSeed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrNoSeed, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSeedSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSeed, err)
	}
	return Parse(data, l.URL)
}

// Parse decodes a year-keyed document. YAML is picked by the name extension.
func Parse(data []byte, name string) ([]model.Task, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var b store.Buckets
		if err := yaml.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("%w: could not decode %s: %w", ErrNoSeed, name, err)
		}
		return b.Flatten(), nil
	default:
		tasks, err := store.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNoSeed, name, err)
		}
		return tasks, nil
	}
}
