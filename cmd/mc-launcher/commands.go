package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"github.com/google/subcommands"
	asset_engine "github.com/mrmelon54/mc-launch-engine/asset-engine"
	mod_files "github.com/mrmelon54/mc-launch-engine/mod-files"
	"go.uber.org/zap"
	"net/http"
	"os"
	"strconv"
	"strings"
)

func appFrom(args []interface{}) *app {
	return args[0].(*app)
}

func progressLogger(log *zap.Logger) asset_engine.ProgressFunc {
	return func(p asset_engine.Progress) {
		log.Info("Progress",
			zap.Int("percent", p.Percent),
			zap.Int("done", p.Done),
			zap.Int("total", p.Total),
			zap.String("message", p.Message))
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

type resolveCommand struct{}

func (*resolveCommand) Name() string     { return "resolve" }
func (*resolveCommand) Synopsis() string { return "print the merged manifest of a version" }
func (*resolveCommand) Usage() string {
	return `Usage: mc-launcher resolve <version>

	Resolves the inheritance chain of a version, installing vanilla
	manifests when missing, and prints the merged manifest.
`
}
func (*resolveCommand) SetFlags(*flag.FlagSet) {}

func (*resolveCommand) Execute(ctx context.Context, fs *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if fs.NArg() != 1 {
		return subcommands.ExitUsageError
	}
	l, closeFn, err := a.launcher(nil)
	if err != nil {
		a.log.Error("Failed to start launcher", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer closeFn()

	m, err := l.Resolve(ctx, fs.Arg(0))
	if err != nil {
		a.log.Error("Failed to resolve version", zap.String("version", fs.Arg(0)), zap.Error(err))
		return subcommands.ExitFailure
	}
	printJSON(m)
	return subcommands.ExitSuccess
}

type acquireCommand struct {
	failures bool
}

func (*acquireCommand) Name() string     { return "acquire" }
func (*acquireCommand) Synopsis() string { return "download everything a version needs" }
func (*acquireCommand) Usage() string {
	return `Usage: mc-launcher acquire [-failures] <version>

	Downloads the missing libraries, client jar and assets of a version and
	extracts its natives. Only files that are absent or damaged are fetched,
	so running it again retries just the previous failures.

Flags:
`
}

func (cmd *acquireCommand) SetFlags(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.failures, "failures", false, "print the failures of the last acquisition instead")
}

func (cmd *acquireCommand) Execute(ctx context.Context, fs *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if fs.NArg() != 1 {
		return subcommands.ExitUsageError
	}
	id := fs.Arg(0)
	l, closeFn, err := a.launcher(nil)
	if err != nil {
		a.log.Error("Failed to start launcher", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer closeFn()

	if cmd.failures {
		if l.History == nil {
			a.log.Error("History is unavailable")
			return subcommands.ExitFailure
		}
		names, err := l.History.LatestFailures(ctx, id)
		if err != nil {
			a.log.Error("Failed to read history", zap.Error(err))
			return subcommands.ExitFailure
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return subcommands.ExitSuccess
	}

	m, err := l.Resolve(ctx, id)
	if err != nil {
		a.log.Error("Failed to resolve version", zap.String("version", id), zap.Error(err))
		return subcommands.ExitFailure
	}
	prep, err := l.Acquire(ctx, m, progressLogger(a.log))
	if err != nil {
		a.log.Error("Failed to acquire version", zap.String("version", id), zap.Error(err))
		return subcommands.ExitFailure
	}
	printJSON(prep.Result)
	if !prep.Result.OK() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type argsCommand struct {
	asJSON bool
}

func (*argsCommand) Name() string     { return "args" }
func (*argsCommand) Synopsis() string { return "print the launch command of a profile" }
func (*argsCommand) Usage() string {
	return `Usage: mc-launcher args [-json] <profile>

	Acquires the profile's version and prints the command that would start it.

Flags:
`
}

func (cmd *argsCommand) SetFlags(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.asJSON, "json", false, "print the argument vector as json")
}

func (cmd *argsCommand) Execute(ctx context.Context, fs *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if fs.NArg() != 1 {
		return subcommands.ExitUsageError
	}
	p, ok := a.profile(fs.Arg(0))
	if !ok {
		a.log.Error("Unknown profile", zap.String("profile", fs.Arg(0)))
		return subcommands.ExitFailure
	}
	l, closeFn, err := a.launcher(nil)
	if err != nil {
		a.log.Error("Failed to start launcher", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer closeFn()

	_, launchArgs, err := l.Arguments(ctx, p.Version, p.LaunchAccount(), p.LaunchConfig(a.config().Launch), progressLogger(a.log))
	if err != nil {
		a.log.Error("Failed to build arguments", zap.String("version", p.Version), zap.Error(err))
		return subcommands.ExitFailure
	}
	if cmd.asJSON {
		printJSON(launchArgs)
	} else {
		fmt.Println(launchArgs.CommandLine())
	}
	return subcommands.ExitSuccess
}

type launchCommand struct{}

func (*launchCommand) Name() string     { return "launch" }
func (*launchCommand) Synopsis() string { return "start the game for a profile" }
func (*launchCommand) Usage() string {
	return `Usage: mc-launcher launch <profile>

	Acquires the profile's version, starts the game and streams its output
	until it exits.
`
}
func (*launchCommand) SetFlags(*flag.FlagSet) {}

func (*launchCommand) Execute(ctx context.Context, fs *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if fs.NArg() != 1 {
		return subcommands.ExitUsageError
	}
	p, ok := a.profile(fs.Arg(0))
	if !ok {
		a.log.Error("Unknown profile", zap.String("profile", fs.Arg(0)))
		return subcommands.ExitFailure
	}
	l, closeFn, err := a.launcher(nil)
	if err != nil {
		a.log.Error("Failed to start launcher", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer closeFn()
	l.Process = &execLauncher{log: a.log.Named("game")}

	session, err := l.Launch(ctx, p.Version, p.LaunchAccount(), p.LaunchConfig(a.config().Launch), progressLogger(a.log))
	if err != nil {
		a.log.Error("Failed to launch", zap.String("profile", fs.Arg(0)), zap.Error(err))
		return subcommands.ExitFailure
	}

	select {
	case err = <-session.Done():
	case <-ctx.Done():
		_ = session.Process.Kill()
		err = <-session.Done()
	}
	if err != nil {
		a.log.Error("Game exited", zap.Error(err))
		return subcommands.ExitFailure
	}
	a.log.Info("Game exited")
	return subcommands.ExitSuccess
}

type fetchModCommand struct {
	modrinth   string
	curseforge string
}

func (*fetchModCommand) Name() string     { return "fetch-mod" }
func (*fetchModCommand) Synopsis() string { return "download a mod file from modrinth or curseforge" }
func (*fetchModCommand) Usage() string {
	return `Usage: mc-launcher fetch-mod -modrinth <versionId>
       mc-launcher fetch-mod -curseforge <modId>:<fileId>

	Downloads one mod file into the mods directory.

Flags:
`
}

func (cmd *fetchModCommand) SetFlags(fs *flag.FlagSet) {
	fs.StringVar(&cmd.modrinth, "modrinth", "", "modrinth version id")
	fs.StringVar(&cmd.curseforge, "curseforge", "", "curseforge mod and file id as modId:fileId")
}

func (cmd *fetchModCommand) Execute(ctx context.Context, fs *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	conf := a.config()
	client := http.DefaultClient

	var job asset_engine.DownloadJob
	var err error
	switch {
	case cmd.modrinth != "":
		job, err = mod_files.NewModrinth(conf.Modrinth, client).Resolve(ctx, cmd.modrinth)
	case cmd.curseforge != "":
		modId, fileId, perr := parseCurseforgeRef(cmd.curseforge)
		if perr != nil {
			a.log.Error("Invalid curseforge reference", zap.Error(perr))
			return subcommands.ExitUsageError
		}
		job, err = mod_files.NewCurseforge(conf.Curseforge, client).Resolve(ctx, modId, fileId)
	default:
		return subcommands.ExitUsageError
	}
	if err != nil {
		a.log.Error("Failed to resolve mod file", zap.Error(err))
		return subcommands.ExitFailure
	}

	l, closeFn, err := a.launcher(nil)
	if err != nil {
		a.log.Error("Failed to start launcher", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer closeFn()
	res := l.Downloader.Run(ctx, []asset_engine.DownloadJob{job}, nil)
	if !res.OK() {
		a.log.Error("Failed to download mod file", zap.Strings("failed", res.FailedNames))
		return subcommands.ExitFailure
	}
	a.log.Info("Downloaded mod file", zap.String("file", job.Dest))
	return subcommands.ExitSuccess
}

func parseCurseforgeRef(s string) (int, int, error) {
	modPart, filePart, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, errors.New("expected modId:fileId")
	}
	modId, err := strconv.Atoi(modPart)
	if err != nil {
		return 0, 0, fmt.Errorf("mod id: %w", err)
	}
	fileId, err := strconv.Atoi(filePart)
	if err != nil {
		return 0, 0, fmt.Errorf("file id: %w", err)
	}
	return modId, fileId, nil
}
