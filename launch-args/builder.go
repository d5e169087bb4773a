package launch_args

import (
	"errors"
	"fmt"
	"github.com/go-git/go-billy/v5"
	library_resolver "github.com/mrmelon54/mc-launch-engine/library-resolver"
	"github.com/mrmelon54/mc-launch-engine/manifest"
	"go.uber.org/zap"
	"maps"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrMissingMainClass = errors.New("missing main class")
	ErrMissingClientJar = errors.New("missing client jar")
)

type Config struct {
	// RootDir is the host path of the launcher root the Builder's
	// filesystem is rooted at.
	RootDir         string            `yaml:"-"`
	GameDir         string            `yaml:"gameDir"`
	JavaPath        string            `yaml:"javaPath"`
	NativesDir      string            `yaml:"nativesDir"`
	LauncherName    string            `yaml:"launcherName"`
	LauncherVersion string            `yaml:"launcherVersion"`
	MinMemoryMB     int               `yaml:"minMemory"`
	MaxMemoryMB     int               `yaml:"maxMemory"`
	ExtraJVMArgs    []string          `yaml:"extraJvmArgs"`
	Width           int               `yaml:"width"`
	Height          int               `yaml:"height"`
	AuthlibInjector string            `yaml:"authlibInjector"`
	Platform        manifest.Platform `yaml:"-"`
}

type Builder struct {
	Files     billy.Filesystem
	log       *zap.Logger
	shortPath func(string) string
}

func NewBuilder(files billy.Filesystem, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{Files: files, log: log, shortPath: shortPath}
}

type buildInput struct {
	manifest *manifest.Manifest
	libs     []library_resolver.ResolvedLibrary
	account  Account
	cfg      Config
	platform manifest.Platform
	table    tokenTable

	// modular is set when the main class is a module aware bootstrap loader
	modular bool

	clientJar  string
	libraryDir string
	nativesDir string
	assetsRoot string
	gameAssets string
	separator  string
	classpath  string
}

// Build produces the command for one launch of the resolved manifest m.
func (b *Builder) Build(m *manifest.Manifest, libs []library_resolver.ResolvedLibrary, account Account, cfg Config) (*LaunchArgs, error) {
	if m.MainClass == "" {
		return nil, fmt.Errorf("%s: %w", m.ID, ErrMissingMainClass)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	in := buildInput{
		manifest:   m,
		libs:       libs,
		account:    account,
		cfg:        cfg,
		platform:   platformFor(cfg),
		modular:    library_resolver.IsModularMainClass(m.MainClass),
		clientJar:  b.local(cfg, manifest.JarPath(m.JarID())),
		libraryDir: b.local(cfg, library_resolver.LibrariesDir),
		nativesDir: cfg.NativesDir,
		assetsRoot: b.local(cfg, "assets"),
		gameAssets: b.local(cfg, "assets/virtual/legacy"),
		separator:  string(os.PathListSeparator),
	}
	if in.nativesDir == "" {
		in.nativesDir = b.local(cfg, path.Join(manifest.VersionDir(m.ID), "natives"))
	}

	_, err := b.Files.Stat(manifest.JarPath(m.JarID()))
	hasJar := err == nil
	if !hasJar && !isModLoader(m) {
		return nil, fmt.Errorf("%s: %w", m.JarID(), ErrMissingClientJar)
	}

	cp := library_resolver.Paths(libs, library_resolver.KindClasspath)
	if hasJar {
		cp = append(cp, in.clientJar)
	}
	cp = library_resolver.Dedup(cp)
	in.classpath = library_resolver.JoinPaths(cp)
	in.table = b.tokens(in)

	args := &LaunchArgs{
		Executable:       cfg.JavaPath,
		WorkingDirectory: cfg.GameDir,
		MainClass:        m.MainClass,
		Classpath:        cp,
	}
	if args.Executable == "" {
		args.Executable = "java"
	}

	if m.IsLegacy() {
		b.legacy(in, args)
	} else {
		b.modern(in, args)
	}
	b.log.Debug("Built launch arguments",
		zap.String("version", m.ID),
		zap.Bool("legacy", m.IsLegacy()),
		zap.Int("classpath", len(args.Classpath)),
		zap.Int("modulePath", len(args.ModulePath)))
	return args, nil
}

func (b *Builder) local(cfg Config, rel string) string {
	return filepath.Join(cfg.RootDir, filepath.FromSlash(rel))
}

func platformFor(cfg Config) manifest.Platform {
	p := cfg.Platform
	if p.OSName == "" {
		p = manifest.CurrentPlatform()
	}
	features := maps.Clone(p.Features)
	if features == nil {
		features = make(map[string]bool)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		features["has_custom_resolution"] = true
	}
	p.Features = features
	return p
}

// isModLoader reports whether m is layered on top of another version, in
// which case the loader may provide the game classes itself.
func isModLoader(m *manifest.Manifest) bool {
	return m.InheritsFrom != "" || len(m.Lineage) > 1 || library_resolver.IsModularMainClass(m.MainClass)
}

// legacy treats minecraftArguments as authoritative, only substituting it.
func (b *Builder) legacy(in buildInput, args *LaunchArgs) {
	args.JVM = append(b.jvmTail(in, nil, false), "-cp", in.classpath)
	for _, s := range strings.Fields(in.manifest.MinecraftArguments) {
		args.Game = append(args.Game, in.table.Substitute(s))
	}
	if in.cfg.Width > 0 && in.cfg.Height > 0 && !contains(args.Game, "--width") {
		args.Game = append(args.Game, "--width", in.table["resolution_width"], "--height", in.table["resolution_height"])
	}
}

func (b *Builder) modern(in buildInput, args *LaunchArgs) {
	var jvm []string
	var declared []string
	modulePathAt := -1

	tokens := manifest.Expand(in.manifest.Arguments.JVM, in.platform)
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case isClasspathFlag(t):
			i++
			continue
		case library_resolver.IsModuleFlag(t):
			if i+1 < len(tokens) {
				declared = append(declared, library_resolver.SplitPathList(in.table.Substitute(tokens[i+1]))...)
				i++
			}
			if modulePathAt == -1 {
				modulePathAt = len(jvm)
				jvm = append(jvm, "--module-path", "")
			}
			continue
		}

		s := in.table.Substitute(t)
		if suppressedJVM(s) {
			continue
		}
		if pairedJVMFlags[s] {
			if i+1 >= len(tokens) {
				continue
			}
			v := in.table.Substitute(tokens[i+1])
			i++
			if unresolved(v) {
				continue
			}
			if s == "--add-opens" || s == "--add-exports" {
				v = b.rewriteTargets(in, v)
			}
			jvm = append(jvm, s, v)
			continue
		}
		if k, v, ok := strings.Cut(s, "="); ok && (k == "--add-opens" || k == "--add-exports") {
			s = k + "=" + b.rewriteTargets(in, v)
		}
		jvm = append(jvm, s)
	}

	if modulePathAt != -1 || in.modular {
		modules := b.modulePath(in, declared)
		args.Classpath = withoutPaths(args.Classpath, modules)
		in.table["classpath"] = library_resolver.JoinPaths(args.Classpath)
		for _, e := range modules {
			args.ModulePath = append(args.ModulePath, b.shortPath(e))
		}
	}
	if modulePathAt != -1 {
		jvm[modulePathAt+1] = library_resolver.JoinPaths(args.ModulePath)
	}

	args.JVM = b.jvmTail(in, jvm, modulePathAt != -1)
	args.JVM = append(args.JVM, "-cp", library_resolver.JoinPaths(args.Classpath))
	if modulePathAt == -1 && in.modular {
		// inserted ahead of -cp
		args.JVM = insertBefore(args.JVM, len(args.JVM)-2, "--module-path", library_resolver.JoinPaths(args.ModulePath))
		if !contains(args.JVM, "--add-modules") {
			args.JVM = insertBefore(args.JVM, len(args.JVM)-2, "--add-modules", "ALL-MODULE-PATH")
		}
	}
	args.Game = b.modernGame(in)
}

// jvmTail appends the builder owned JVM flags to the templated ones. The
// class path is added by the caller.
func (b *Builder) jvmTail(in buildInput, jvm []string, declaredModules bool) []string {
	if in.modular && in.manifest.MainClass == library_resolver.ModularMainClasses[0] && !containsSubstring(jvm, "sun.security.util") {
		jvm = append(jvm, "--add-exports=java.base/sun.security.util=cpw.mods.securejarhandler")
	}
	jvm = append(jvm, "-Djava.library.path="+in.nativesDir)
	if in.cfg.LauncherName != "" {
		jvm = append(jvm, "-Dminecraft.launcher.brand="+in.cfg.LauncherName)
	}
	if in.cfg.LauncherVersion != "" {
		jvm = append(jvm, "-Dminecraft.launcher.version="+in.cfg.LauncherVersion)
	}
	if in.cfg.MinMemoryMB > 0 {
		jvm = append(jvm, fmt.Sprintf("-Xms%dM", in.cfg.MinMemoryMB))
	}
	if in.cfg.MaxMemoryMB > 0 {
		jvm = append(jvm, fmt.Sprintf("-Xmx%dM", in.cfg.MaxMemoryMB))
	}
	for _, s := range in.cfg.ExtraJVMArgs {
		if s = in.table.Substitute(s); !unresolved(s) {
			jvm = append(jvm, s)
		}
	}

	if in.account.Kind == AccountYggdrasil {
		if in.cfg.AuthlibInjector != "" && in.account.AuthServerURL != "" {
			jvm = append(jvm, "-javaagent:"+in.cfg.AuthlibInjector+"="+in.account.AuthServerURL)
		} else {
			b.log.Warn("Yggdrasil account without auth agent configured", zap.String("username", in.account.Username))
		}
	}

	if in.modular || declaredModules {
		jvm = setIfAbsent(jvm, "-DlibraryDirectory=", in.libraryDir)
		jvm = setIfAbsent(jvm, "-Dminecraft.client.jar=", in.clientJar)
		if merge := mergeModules(in.libs); merge != "" {
			jvm = setIfAbsent(jvm, "-DmergeModules=", merge)
		}
		jvm = setIfAbsent(jvm, "-Dfml.pluginLayerLibraries=", "")
		jvm = setIfAbsent(jvm, "-Dfml.gameLayerLibraries=", "")
	}
	return jvm
}

var authoritativeGameFlags = map[string]bool{
	"--username":    true,
	"--version":     true,
	"--gameDir":     true,
	"--assetsDir":   true,
	"--assetIndex":  true,
	"--uuid":        true,
	"--accessToken": true,
	"--userType":    true,
	"--versionType": true,
	"--width":       true,
	"--height":      true,
}

func (b *Builder) modernGame(in buildInput) []string {
	tokens := manifest.Expand(in.manifest.Arguments.Game, in.platform)
	var game []string
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		hasValue := strings.HasPrefix(t, "--") && i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "--")
		if hasValue {
			v := in.table.Substitute(tokens[i+1])
			i++
			if authoritativeGameFlags[t] || unresolved(v) {
				continue
			}
			game = append(game, t, v)
			continue
		}
		s := in.table.Substitute(t)
		if authoritativeGameFlags[s] || unresolved(s) {
			continue
		}
		game = append(game, s)
	}

	game = append(game,
		"--username", in.table["auth_player_name"],
		"--version", in.manifest.ID,
		"--gameDir", in.cfg.GameDir,
		"--assetsDir", in.assetsRoot,
		"--assetIndex", in.manifest.AssetIndexID(),
		"--uuid", in.table["auth_uuid"],
		"--accessToken", in.table["auth_access_token"],
		"--userType", in.table["user_type"],
		"--versionType", VersionBrand,
	)
	if w, ok := in.table["resolution_width"]; ok {
		game = append(game, "--width", w, "--height", in.table["resolution_height"])
	}
	return game
}

// modulePath merges the declared entries with every module layer library,
// dropping loader internals and duplicates.
func (b *Builder) modulePath(in buildInput, declared []string) []string {
	entries := make([]string, 0, len(declared))
	for _, e := range declared {
		if !unresolved(e) {
			entries = append(entries, e)
		}
	}
	entries = append(entries, library_resolver.Paths(in.libs, library_resolver.KindModulePath)...)
	for _, l := range in.libs {
		if l.Kind == library_resolver.KindClasspath && library_resolver.IsModuleLibrary(l.Coordinate) {
			entries = append(entries, l.LocalPath)
		}
	}

	out := make([]string, 0, len(entries))
	for _, e := range library_resolver.Dedup(entries) {
		if library_resolver.DeniedModuleFile(e) {
			b.log.Debug("Dropping loader internal jar from module path", zap.String("path", e))
			continue
		}
		out = append(out, e)
	}
	return out
}

// rewriteTargets points --add-opens/--add-exports at the unnamed module
// unless a module aware loader can resolve the named target.
func (b *Builder) rewriteTargets(in buildInput, v string) string {
	if in.modular {
		return v
	}
	source, targets, ok := strings.Cut(v, "=")
	if !ok {
		return v
	}
	var out []string
	for _, t := range strings.Split(targets, ",") {
		if t != "ALL-UNNAMED" && !strings.HasPrefix(t, "java.") && !strings.HasPrefix(t, "jdk.") {
			t = "ALL-UNNAMED"
		}
		if !contains(out, t) {
			out = append(out, t)
		}
	}
	return source + "=" + strings.Join(out, ",")
}

// pairedJVMFlags take their value as the next token.
var pairedJVMFlags = map[string]bool{
	"--add-opens":           true,
	"--add-exports":         true,
	"--add-reads":           true,
	"--add-modules":         true,
	"--limit-modules":       true,
	"--patch-module":        true,
	"--upgrade-module-path": true,
}

func suppressedJVM(s string) bool {
	for _, prefix := range []string{"-Djava.library.path=", "-Dminecraft.launcher.brand=", "-Dminecraft.launcher.version="} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return unresolved(s)
}

func isClasspathFlag(s string) bool {
	return s == "-cp" || s == "-classpath" || s == "--class-path"
}

// mergeModules lists the jna jars the loader merges into one module.
func mergeModules(libs []library_resolver.ResolvedLibrary) string {
	var names []string
	for _, l := range libs {
		if l.Kind == library_resolver.KindSkip || l.Coordinate.Group != "net.java.dev.jna" {
			continue
		}
		if l.Coordinate.Artifact == "jna" || l.Coordinate.Artifact == "jna-platform" {
			names = append(names, l.Coordinate.FileName())
		}
	}
	return strings.Join(names, ",")
}

func setIfAbsent(jvm []string, prefix, value string) []string {
	for _, s := range jvm {
		if strings.HasPrefix(s, prefix) {
			return jvm
		}
	}
	return append(jvm, prefix+value)
}

func withoutPaths(paths, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		drop[library_resolver.Canonical(r)] = struct{}{}
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := drop[library_resolver.Canonical(p)]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func insertBefore(a []string, at int, values ...string) []string {
	out := make([]string, 0, len(a)+len(values))
	out = append(out, a[:at]...)
	out = append(out, values...)
	return append(out, a[at:]...)
}

func contains(a []string, s string) bool {
	for _, i := range a {
		if i == s {
			return true
		}
	}
	return false
}

func containsSubstring(a []string, s string) bool {
	for _, i := range a {
		if strings.Contains(i, s) {
			return true
		}
	}
	return false
}
