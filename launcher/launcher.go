package launcher

import (
	"context"
	"errors"
	"fmt"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	asset_engine "github.com/mrmelon54/mc-launch-engine/asset-engine"
	"github.com/mrmelon54/mc-launch-engine/history"
	jar_parser "github.com/mrmelon54/mc-launch-engine/jar-parser"
	launch_args "github.com/mrmelon54/mc-launch-engine/launch-args"
	library_resolver "github.com/mrmelon54/mc-launch-engine/library-resolver"
	"github.com/mrmelon54/mc-launch-engine/manifest"
	native_extractor "github.com/mrmelon54/mc-launch-engine/native-extractor"
	resolve_versions "github.com/mrmelon54/mc-launch-engine/resolve-versions"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var ErrIncomplete = errors.New("acquisition incomplete")

// LibraryShare is the head of the progress scale used by libraries and the
// client jar when the version also has assets to fetch.
const LibraryShare = 30

type Config struct {
	// RootDir is the host path of the launcher root.
	RootDir            string               `yaml:"rootDir"`
	ResourcesURL       string               `yaml:"resourcesUrl"`
	VersionManifestURL string               `yaml:"versionManifestUrl"`
	VersionManifestTTL time.Duration        `yaml:"versionManifestTtl"`
	Download           asset_engine.Options `yaml:"download"`
	SettleDelay        time.Duration        `yaml:"settleDelay"`
	RequireComplete    bool                 `yaml:"requireComplete"`
	ModsDir            string               `yaml:"modsDir"`
	Platform           manifest.Platform    `yaml:"-"`
}

func (c Config) Defaults() Config {
	if c.VersionManifestTTL <= 0 {
		c.VersionManifestTTL = 30 * time.Minute
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.ModsDir == "" {
		c.ModsDir = "mods"
	}
	if c.Platform.OSName == "" {
		c.Platform = manifest.CurrentPlatform()
	}
	c.Download = c.Download.Defaults()
	return c
}

// Launcher runs the whole pipeline from a version id to a running game.
// History, Remote and Process are optional.
type Launcher struct {
	Files      billy.Filesystem
	Store      *manifest.Store
	Versions   *resolve_versions.Resolver
	Remote     *resolve_versions.McVersions
	Libraries  *library_resolver.Resolver
	Natives    *native_extractor.Extractor
	Downloader *asset_engine.Downloader
	Assets     *asset_engine.Engine
	Args       *launch_args.Builder
	History    *history.Store
	Process    ProcessLauncher

	conf Config
	log  *zap.Logger
}

func New(files billy.Filesystem, client *http.Client, conf Config, reg prometheus.Registerer, log *zap.Logger) *Launcher {
	if log == nil {
		log = zap.NewNop()
	}
	conf = conf.Defaults()
	store := manifest.NewStore(files)
	dl := asset_engine.NewDownloader(files, client, conf.Download, asset_engine.NewMetrics(reg), log.Named("download"))
	return &Launcher{
		Files:      files,
		Store:      store,
		Versions:   resolve_versions.NewResolver(store, log.Named("versions")),
		Remote:     resolve_versions.NewMcVersionCache(client, conf.VersionManifestURL, conf.VersionManifestTTL, log.Named("remote")),
		Libraries:  library_resolver.NewResolver(files, conf.RootDir, log.Named("libraries")),
		Natives:    native_extractor.NewExtractor(files, log.Named("natives")),
		Downloader: dl,
		Assets:     asset_engine.NewEngine(dl, conf.ResourcesURL, log.Named("assets")),
		Args:       launch_args.NewBuilder(files, log.Named("args")),
		conf:       conf,
		log:        log,
	}
}

func (l *Launcher) Config() Config { return l.conf }

// Resolve loads the merged manifest for id, installing the manifest and any
// vanilla ancestors from the remote version list when they are missing.
func (l *Launcher) Resolve(ctx context.Context, id string) (*manifest.Manifest, error) {
	if l.Remote != nil {
		if err := l.install(ctx, id); err != nil {
			return nil, err
		}
	}
	return l.Versions.Resolve(id)
}

func (l *Launcher) install(ctx context.Context, id string) error {
	cur := id
	for depth := 0; cur != "" && depth < 16; depth++ {
		if !l.Store.Exists(cur) {
			err := l.Remote.Install(ctx, l.Store, cur)
			switch {
			case err == nil:
			case cur == id && !errors.Is(err, resolve_versions.ErrUnknownVersion):
				return err
			default:
				// the resolver decides how to handle what is still missing
				l.log.Debug("Version not installable", zap.String("version", cur), zap.Error(err))
				return nil
			}
		}
		m, err := l.Store.Load(cur)
		if err != nil {
			return nil
		}
		cur = m.InheritsFrom
	}
	return nil
}

// Prepared is a resolved version with everything it needs on disk.
type Prepared struct {
	Manifest  *manifest.Manifest
	Libraries []library_resolver.ResolvedLibrary
	Result    asset_engine.AcquisitionResult
}

// Acquire downloads the libraries, client jar and assets of m and extracts
// its natives. Per file failures are counted in the result; only a missing
// asset index or cancellation is returned as an error.
func (l *Launcher) Acquire(ctx context.Context, m *manifest.Manifest, onProgress asset_engine.ProgressFunc) (*Prepared, error) {
	libs := l.Libraries.Classify(m, l.conf.Platform)
	for _, name := range library_resolver.Unresolved(libs) {
		l.log.Warn("Skipping unresolvable library", zap.String("version", m.ID), zap.String("library", name))
	}

	hasAssets := m.AssetIndex != nil && m.AssetIndex.URL != ""
	phases := asset_engine.NewPhases(onProgress)
	libraryHi := 100
	if hasAssets {
		libraryHi = LibraryShare
	}

	jobs := l.libraryJobs(m, libs)
	res := l.Downloader.Run(ctx, jobs, phases.Stage(0, libraryHi))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(jobs) > 0 {
		libs = l.Libraries.Classify(m, l.conf.Platform)
	}

	if hasAssets {
		assets, err := l.Assets.Acquire(ctx, *m.AssetIndex, phases.Stage(libraryHi, 100))
		if err != nil {
			return nil, err
		}
		res = res.Merge(assets)
	} else {
		l.log.Warn("Version has no asset index", zap.String("version", m.ID))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if l.History != nil {
		if err := l.History.RecordAcquisition(ctx, m.ID, res); err != nil {
			l.log.Warn("Failed to record acquisition", zap.Error(err))
		}
	}
	if err := l.Natives.Extract(libs, native_extractor.NativesDir(m.ID)); err != nil {
		return nil, err
	}
	l.log.Info("Acquired version",
		zap.String("version", m.ID),
		zap.Int("total", res.Total),
		zap.Int("failed", res.Failed),
		zap.Int64("bytes", res.Bytes))
	return &Prepared{Manifest: m, Libraries: libs, Result: res}, nil
}

func (l *Launcher) libraryJobs(m *manifest.Manifest, libs []library_resolver.ResolvedLibrary) []asset_engine.DownloadJob {
	var jobs []asset_engine.DownloadJob
	for _, lib := range library_resolver.Missing(libs) {
		if lib.Download == nil {
			l.log.Warn("Missing library has no download", zap.String("library", lib.Library.Name))
			continue
		}
		jobs = append(jobs, asset_engine.DownloadJob{
			Name: lib.Library.Name,
			Hash: lib.Download.SHA1,
			URL:  lib.Download.URL,
			Dest: lib.RelPath,
			Size: lib.Download.Size,
		})
	}

	client, ok := m.Downloads["client"]
	if !ok || client.URL == "" {
		return jobs
	}
	jar := manifest.JarPath(m.JarID())
	if fi, err := l.Files.Stat(jar); err == nil && (client.Size == 0 || fi.Size() == client.Size) {
		return jobs
	}
	return append(jobs, asset_engine.DownloadJob{
		Name: m.JarID() + ".jar",
		Hash: client.SHA1,
		URL:  client.URL,
		Dest: jar,
		Size: client.Size,
	})
}

// CheckMods logs mods in the mods directory of gameDir that exclude the
// version being launched. It never fails the launch.
func (l *Launcher) CheckMods(gameDir, gameVersion string) []jar_parser.ModMetadata {
	fs, dir := l.modsDir(gameDir)
	mods, err := jar_parser.ScanMods(fs, dir, l.log.Named("mods"))
	if err != nil {
		l.log.Warn("Failed to scan mods", zap.String("dir", dir), zap.Error(err))
		return nil
	}
	bad := jar_parser.Incompatible(mods, gameVersion)
	for _, m := range bad {
		l.log.Warn("Mod does not support game version",
			zap.String("mod", m.ID),
			zap.String("file", m.Source),
			zap.String("version", gameVersion))
	}
	return bad
}

// modsDir finds the mods directory of gameDir. The launcher root keeps the
// configured ModsDir, other game dirs inside the root are read through Files
// and anything outside the root is opened from the host.
func (l *Launcher) modsDir(gameDir string) (billy.Filesystem, string) {
	if gameDir == "" || filepath.Clean(gameDir) == filepath.Clean(l.conf.RootDir) {
		return l.Files, l.conf.ModsDir
	}
	if l.conf.RootDir != "" {
		if rel, err := filepath.Rel(l.conf.RootDir, gameDir); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return l.Files, path.Join(filepath.ToSlash(rel), "mods")
		}
	}
	return osfs.New(gameDir), "mods"
}

// Arguments resolves and acquires id then builds its launch arguments.
func (l *Launcher) Arguments(ctx context.Context, id string, account launch_args.Account, cfg launch_args.Config, onProgress asset_engine.ProgressFunc) (*Prepared, *launch_args.LaunchArgs, error) {
	m, err := l.Resolve(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	prep, err := l.Acquire(ctx, m, onProgress)
	if err != nil {
		return nil, nil, err
	}
	if !prep.Result.OK() {
		if l.conf.RequireComplete {
			return prep, nil, fmt.Errorf("%w: %d failed: %s", ErrIncomplete, prep.Result.Failed, strings.Join(prep.Result.FailedNames, ", "))
		}
		l.log.Warn("Launching with missing files", zap.String("version", id), zap.Int("failed", prep.Result.Failed))
	}

	l.CheckMods(cfg.GameDir, gameVersion(m))

	cfg.RootDir = l.conf.RootDir
	cfg.Platform = l.conf.Platform
	args, err := l.Args.Build(m, prep.Libraries, account, cfg)
	if err != nil {
		return prep, nil, err
	}
	return prep, args, nil
}

// Plan builds the launch arguments of id from what is already on disk,
// without downloading anything.
func (l *Launcher) Plan(ctx context.Context, id string, account launch_args.Account, cfg launch_args.Config) (*launch_args.LaunchArgs, []library_resolver.ResolvedLibrary, error) {
	m, err := l.Resolve(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	libs := l.Libraries.Classify(m, l.conf.Platform)
	cfg.RootDir = l.conf.RootDir
	cfg.Platform = l.conf.Platform
	args, err := l.Args.Build(m, libs, account, cfg)
	if err != nil {
		return nil, libs, err
	}
	return args, libs, nil
}

// gameVersion is the vanilla version at the root of the inheritance chain.
func gameVersion(m *manifest.Manifest) string {
	if len(m.Lineage) > 0 {
		return m.Lineage[len(m.Lineage)-1]
	}
	return m.ID
}

// Launch runs the full pipeline and starts the game, returning once the
// process has survived the settle delay.
func (l *Launcher) Launch(ctx context.Context, id string, account launch_args.Account, cfg launch_args.Config, onProgress asset_engine.ProgressFunc) (*Session, error) {
	if l.Process == nil {
		return nil, errors.New("no process launcher configured")
	}
	_, args, err := l.Arguments(ctx, id, account, cfg, onProgress)
	if err != nil {
		return nil, err
	}
	s, err := Start(ctx, l.Process, args, l.conf.SettleDelay)
	if l.History != nil {
		if herr := l.History.RecordLaunch(context.WithoutCancel(ctx), id, args.CommandLine(), err); herr != nil {
			l.log.Warn("Failed to record launch", zap.Error(herr))
		}
	}
	if err != nil {
		return nil, err
	}
	l.log.Info("Game started", zap.String("version", id), zap.Int("pid", s.Process.Pid()))
	return s, nil
}
