package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agalitsyn/flagutils"
	"github.com/agalitsyn/secret"

	"github.com/agalitsyn/artist-scheduler/internal/store"
	"github.com/agalitsyn/artist-scheduler/version"
)

const EnvPrefix = "ARTIST_SCHEDULER"

type Config struct {
	Debug bool

	Log struct {
		Level string
	}

	DB struct {
		Path string
	}

	StorageKey  string
	Seed        string
	SeedTimeout time.Duration

	HTTP struct {
		Addr  string
		Token secret.String
	}

	Telegram struct {
		Token         secret.String
		Admins        []int64
		NotifyChatID  int64
		UpdateTimeout int
		ExportPause   time.Duration
	}

	Command string   `json:"-"`
	Args    []string `json:"-"`
}

func (c Config) String() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stdout, err)
		os.Exit(0)
	}
	return string(b)
}

func ParseFlags() Config {
	var cfg Config

	printVersion := flag.Bool("version", false, "Show version.")
	logLevel := flag.String("log-level", "info", "Log level (debug | info).")
	dbPath := flag.String("db", "artist-scheduler.db", "Path to sqlite database.")
	storageKey := flag.String("storage-key", store.DefaultKey, "Key the task list is stored under.")
	seedSrc := flag.String("seed", "", "Seed dataset used when nothing is stored yet: file path or http(s) URL. Bundled data when empty.")
	seedTimeout := flag.Duration("seed-timeout", 30*time.Second, "Timeout for fetching seed data over http.")
	httpAddr := flag.String("http-addr", ":8080", "HTTP listen address for serve.")
	httpToken := flag.String("http-token", "", "Bearer token required for changing tasks over http.")
	tgToken := flag.String("tg-token", "", "Telegram bot token.")
	tgAdmins := flag.String("tg-admins", "", "Comma separated telegram user ids allowed to change tasks.")
	tgNotify := flag.Int64("tg-notify-chat", 0, "Telegram chat id notified about every change.")
	tgTimeout := flag.Int("tg-update-timeout", 60, "Telegram long polling timeout in seconds.")
	tgExportPause := flag.Duration("tg-export-pause", 300*time.Millisecond, "Pause between exported documents.")

	flag.Usage = usage

	flagutils.Prefix = EnvPrefix
	flagutils.Parse()
	flag.Parse()

	if *printVersion {
		fmt.Fprintln(os.Stdout, version.String())
		os.Exit(0)
	}

	cfg.Log.Level = strings.ToLower(*logLevel)
	if cfg.Log.Level == "debug" {
		cfg.Debug = true
	}

	cfg.DB.Path = *dbPath
	cfg.StorageKey = *storageKey
	cfg.Seed = *seedSrc
	cfg.SeedTimeout = *seedTimeout

	cfg.HTTP.Addr = *httpAddr
	cfg.HTTP.Token = secret.NewString(*httpToken)

	cfg.Telegram.Token = secret.NewString(*tgToken)
	cfg.Telegram.NotifyChatID = *tgNotify
	cfg.Telegram.UpdateTimeout = *tgTimeout
	cfg.Telegram.ExportPause = *tgExportPause
	admins, err := parseIDs(*tgAdmins)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -tg-admins: %s\n", err)
		os.Exit(2)
	}
	cfg.Telegram.Admins = admins

	cfg.Command = "list"
	if flag.NArg() > 0 {
		cfg.Command = flag.Arg(0)
		cfg.Args = flag.Args()[1:]
	}

	return cfg
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, `Usage: %s [flags] <command> [command flags]

Commands:
  list      show tasks (-year -type -status -month -q -all-years -step -view list|calendar|gantt)
  years     show years present and the current one
  show ID   show one task
  add       create a task (-year -month -type -status -location -artists -temp -notes)
  edit ID   replace a task, unset flags keep their values
  delete ID remove a task after confirmation (-yes skips the prompt)
  stats     dashboard summary of the filtered tasks (filter flags as in list)
  export    write exports (-format all|json|csv, -dir for all)
  serve     run the HTTP API
  bot       run the Telegram bot
  reset     drop stored tasks, the seed is loaded again on next start

Every flag can be set from the environment as %s_<FLAG>, e.g. %s_DB.

Flags:
`, os.Args[0], EnvPrefix, EnvPrefix)
	flag.PrintDefaults()
}
