package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/subcommands"
	mc_launch_engine "github.com/mrmelon54/mc-launch-engine"
	"github.com/mrmelon54/mc-launch-engine/history"
	"github.com/mrmelon54/mc-launch-engine/launcher"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"
)

const programName = "mc-launcher"

// app is shared by every subcommand.
type app struct {
	configPath   string
	profilesPath string
	configYml    *atomic.Pointer[Config]
	profilesYml  *atomic.Pointer[mc_launch_engine.ProfilesConfig]
	log          *zap.Logger
}

func main() {
	var configYmlPath string
	var verbose bool

	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.StringVar(&configYmlPath, "conf", "config.yml", "Path to the config file")
	fs.BoolVar(&verbose, "v", false, "Enable debug logging")

	cdr := subcommands.NewCommander(fs, programName)
	cdr.Register(&resolveCommand{}, "")
	cdr.Register(&acquireCommand{}, "")
	cdr.Register(&argsCommand{}, "")
	cdr.Register(&launchCommand{}, "")
	cdr.Register(&fetchModCommand{}, "")
	cdr.Register(&serveCommand{}, "")
	cdr.Register(cdr.HelpCommand(), "help")
	cdr.Register(cdr.FlagsCommand(), "help")
	cdr.Register(cdr.CommandsCommand(), "help")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}

	logConf := zap.NewProductionConfig()
	if verbose {
		logConf.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := logConf.Build()
	if err != nil {
		log.Fatalln("Failed to build logger:", err)
	}
	defer logger.Sync()

	a := &app{
		configPath:   configYmlPath,
		profilesPath: filepath.Join(filepath.Dir(configYmlPath), "profiles.yml"),
		configYml:    new(atomic.Pointer[Config]),
		profilesYml:  new(atomic.Pointer[mc_launch_engine.ProfilesConfig]),
		log:          logger,
	}
	if err := a.reload(); err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := cdr.Execute(ctx, a)
	stop()
	switch status {
	case subcommands.ExitFailure:
		_ = logger.Sync()
		os.Exit(1)
	case subcommands.ExitUsageError:
		_ = logger.Sync()
		os.Exit(2)
	}
}

// reload reads config.yml and, when present, profiles.yml.
func (a *app) reload() error {
	if err := loadConfig[Config](a.configYml, a.configPath); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c := a.configYml.Load().Defaults(filepath.Dir(a.configPath))
	a.configYml.Store(&c)

	err := loadConfig[mc_launch_engine.ProfilesConfig](a.profilesYml, a.profilesPath)
	switch {
	case os.IsNotExist(err):
		a.profilesYml.Store(&mc_launch_engine.ProfilesConfig{})
	case err != nil:
		return fmt.Errorf("profiles: %w", err)
	}
	return nil
}

func (a *app) config() Config { return *a.configYml.Load() }

// profile looks up a profile by name.
func (a *app) profile(name string) (mc_launch_engine.Profile, bool) {
	p, ok := (*a.profilesYml.Load())[name]
	return p, ok
}

// launcher builds the pipeline over the configured root. The history store
// is attached when it can be opened.
func (a *app) launcher(reg prometheus.Registerer) (*launcher.Launcher, func(), error) {
	conf := a.config()
	if err := os.MkdirAll(conf.Launcher.RootDir, 0755); err != nil {
		return nil, nil, err
	}
	client := &http.Client{Timeout: 10 * time.Minute}
	l := launcher.New(osfs.New(conf.Launcher.RootDir), client, conf.Launcher, reg, a.log)

	store, err := history.Open(conf.HistoryDB, a.log.Named("history"))
	if err != nil {
		a.log.Warn("History unavailable", zap.Error(err))
		return l, func() {}, nil
	}
	l.History = store
	return l, func() {
		if err := store.Close(); err != nil {
			a.log.Warn("Failed to close history", zap.Error(err))
		}
	}, nil
}

func loadConfig[T any](ptr *atomic.Pointer[T], p string) error {
	var c T
	file, err := os.Open(p)
	if err != nil {
		return err
	}
	defer file.Close()
	decoder := yaml.NewDecoder(file)
	err = decoder.Decode(&c)
	if err != nil {
		return err
	}
	ptr.Store(&c)
	return nil
}
