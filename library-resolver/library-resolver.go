package library_resolver

import (
	"errors"
	"github.com/go-git/go-billy/v5"
	"github.com/mrmelon54/mc-launch-engine/manifest"
	"go.uber.org/zap"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	LibrariesDir      = "libraries"
	DefaultRepository = "https://libraries.minecraft.net/"
)

type Kind int

const (
	KindClasspath Kind = iota
	KindModulePath
	KindNative
	KindSkip
)

func (k Kind) String() string {
	switch k {
	case KindClasspath:
		return "classpath"
	case KindModulePath:
		return "modulePath"
	case KindNative:
		return "native"
	}
	return "skip"
}

// ResolvedLibrary is one classified library entry. A library carrying both a
// main artifact and a native classifier produces two entries.
type ResolvedLibrary struct {
	Library    manifest.Library
	Coordinate manifest.Coordinate
	Kind       Kind

	// RelPath is slash separated and relative to the launcher root.
	RelPath   string
	LocalPath string

	// Missing is set when the file is absent or its size disagrees with
	// the manifest.
	Missing    bool
	Unresolved bool
	Err        error

	// Download is where a missing file can be fetched from, nil if unknown.
	Download *manifest.Artifact
}

type Resolver struct {
	Files billy.Filesystem
	Root  string
	log   *zap.Logger
}

func NewResolver(files billy.Filesystem, root string, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{Files: files, Root: root, log: log}
}

// LocalPath converts a launcher relative slash path into a host path.
func (r *Resolver) LocalPath(rel string) string {
	return filepath.Join(r.Root, filepath.FromSlash(rel))
}

// Classify evaluates every library of m against p and returns the resulting
// entries in manifest order.
func (r *Resolver) Classify(m *manifest.Manifest, p manifest.Platform) []ResolvedLibrary {
	modular := IsModular(m, p)
	declared := declaredModuleFiles(m, p)

	out := make([]ResolvedLibrary, 0, len(m.Libraries))
	for _, l := range m.Libraries {
		if !manifest.Allowed(l.Rules, p) {
			out = append(out, ResolvedLibrary{Library: l, Kind: KindSkip})
			continue
		}
		c, err := manifest.ParseCoordinate(l.Name)
		if err != nil {
			r.log.Warn("Skipping unresolvable library", zap.String("library", l.Name), zap.Error(err))
			out = append(out, ResolvedLibrary{Library: l, Kind: KindSkip, Unresolved: true, Err: err})
			continue
		}
		if isVirtual(l, c) {
			r.log.Debug("Skipping virtual library", zap.String("library", l.Name))
			out = append(out, ResolvedLibrary{Library: l, Coordinate: c, Kind: KindSkip})
			continue
		}

		classifier, native := nativeClassifier(l, c, p)
		if !native && l.Natives != nil && l.Artifact() == nil {
			// natives for other platforms only
			out = append(out, ResolvedLibrary{Library: l, Coordinate: c, Kind: KindSkip})
			continue
		}
		if native && !nativeMatchesArch(classifier, p) {
			out = append(out, ResolvedLibrary{Library: l, Coordinate: c, Kind: KindSkip})
			continue
		}

		// natives declared through the natives map live in a classifier
		// artifact, the main artifact (if any) still goes on the classpath
		if native && l.Natives != nil {
			if a := l.Artifact(); a != nil {
				out = append(out, r.entry(l, c, a, jarKind(c, modular, declared)))
			}
			a := classifierArtifact(l, classifier)
			out = append(out, r.entry(l, c.WithClassifier(classifier), a, KindNative))
			continue
		}
		if native {
			out = append(out, r.entry(l, c, l.Artifact(), KindNative))
			continue
		}
		out = append(out, r.entry(l, c, l.Artifact(), jarKind(c, modular, declared)))
	}
	return out
}

func (r *Resolver) entry(l manifest.Library, c manifest.Coordinate, a *manifest.Artifact, kind Kind) ResolvedLibrary {
	rel := c.Path()
	if a != nil && a.Path != "" {
		rel = a.Path
	}
	rel = path.Join(LibrariesDir, rel)
	lib := ResolvedLibrary{
		Library:    l,
		Coordinate: c,
		Kind:       kind,
		RelPath:    rel,
		LocalPath:  r.LocalPath(rel),
		Download:   downloadFor(l, c, a),
	}

	fi, err := r.Files.Stat(rel)
	switch {
	case errors.Is(err, os.ErrNotExist):
		lib.Missing = true
	case err != nil:
		lib.Missing = true
		lib.Err = err
	case a != nil && a.Size > 0 && fi.Size() != a.Size:
		r.log.Warn("Library size mismatch", zap.String("library", l.Name), zap.Int64("expected", a.Size), zap.Int64("actual", fi.Size()))
		lib.Missing = true
	}
	return lib
}

func downloadFor(l manifest.Library, c manifest.Coordinate, a *manifest.Artifact) *manifest.Artifact {
	if a != nil && a.URL != "" {
		d := *a
		return &d
	}
	if a != nil {
		// declared artifact without a url is provided by an installer
		return nil
	}
	base := l.URL
	if base == "" {
		base = DefaultRepository
	}
	return &manifest.Artifact{Path: c.Path(), URL: strings.TrimSuffix(base, "/") + "/" + c.Path()}
}

func classifierArtifact(l manifest.Library, classifier string) *manifest.Artifact {
	if l.Downloads == nil {
		return nil
	}
	a, ok := l.Downloads.Classifiers[classifier]
	if !ok {
		return nil
	}
	return &a
}

// isVirtual matches loader marker entries such as forge:client that have no
// real artifact behind them.
func isVirtual(l manifest.Library, c manifest.Coordinate) bool {
	switch {
	case c.Classifier == "client", c.Classifier == "server":
	case c.Version == "client", c.Version == "server":
	default:
		return false
	}
	a := l.Artifact()
	return a == nil || a.URL == ""
}

func nativeClassifier(l manifest.Library, c manifest.Coordinate, p manifest.Platform) (string, bool) {
	if key, ok := l.Natives[p.OSName]; ok {
		return strings.ReplaceAll(key, "${arch}", p.Bits()), true
	}
	if strings.HasPrefix(c.Classifier, "natives-") {
		return c.Classifier, true
	}
	return "", false
}

func nativeMatchesArch(classifier string, p manifest.Platform) bool {
	switch {
	case strings.HasSuffix(classifier, "-arm64"), strings.HasSuffix(classifier, "-aarch_64"):
		return p.Arch == "arm64"
	case strings.HasSuffix(classifier, "-x86"):
		return p.Arch == "x86"
	}
	return true
}

func jarKind(c manifest.Coordinate, modular bool, declared map[string]struct{}) Kind {
	if _, ok := declared[c.FileName()]; ok {
		return KindModulePath
	}
	if modular && IsModuleLibrary(c) {
		return KindModulePath
	}
	return KindClasspath
}

// Missing returns the entries that need downloading.
func Missing(libs []ResolvedLibrary) []ResolvedLibrary {
	var out []ResolvedLibrary
	for _, l := range libs {
		if l.Kind != KindSkip && l.Missing {
			out = append(out, l)
		}
	}
	return out
}

// Unresolved returns the names of libraries whose coordinate could not be parsed.
func Unresolved(libs []ResolvedLibrary) []string {
	var out []string
	for _, l := range libs {
		if l.Unresolved {
			out = append(out, l.Library.Name)
		}
	}
	return out
}
