package library_resolver

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/mrmelon54/mc-launch-engine/manifest"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// ModularMainClasses are bootstrap loaders that start the game as a set of
// named modules.
var ModularMainClasses = []string{
	"cpw.mods.bootstraplauncher.BootstrapLauncher",
	"net.neoforged.fml.startup.Client",
}

// ModuleLibraryPrefixes are the group:artifact prefixes that make up the
// module layer of a modular loader. They are required on the module path even
// when the manifest's own module path omits them.
var ModuleLibraryPrefixes = []string{
	"cpw.mods:bootstraplauncher",
	"cpw.mods:securejarhandler",
	"org.ow2.asm:asm",
	"net.minecraftforge:JarJarFileSystems",
	"net.neoforged:JarJarFileSystems",
}

// deniedModuleFiles must never reach the module path, they are loaded by the
// loader itself.
var deniedModuleFiles = []string{"earlydisplay", "fmlearlydisplay", "fmlloader"}

func IsModularMainClass(mainClass string) bool {
	return slices.Contains(ModularMainClasses, mainClass)
}

// IsModular reports whether m declares a module path or starts through a
// modular bootstrap loader.
func IsModular(m *manifest.Manifest, p manifest.Platform) bool {
	return IsModularMainClass(m.MainClass) || len(DeclaredModulePath(m, p)) > 0
}

func IsModuleLibrary(c manifest.Coordinate) bool {
	ga := c.Group + ":" + c.Artifact
	for _, prefix := range ModuleLibraryPrefixes {
		if strings.HasPrefix(ga, prefix) {
			return true
		}
	}
	return false
}

func IsModuleFlag(s string) bool {
	return s == "-p" || s == "--module-path"
}

// DeniedModuleFile reports whether a jar file name belongs to the loader's
// early display or loader internals.
func DeniedModuleFile(name string) bool {
	base := strings.ToLower(path.Base(filepath.ToSlash(name)))
	for _, d := range deniedModuleFiles {
		if strings.Contains(base, d) {
			return true
		}
	}
	return false
}

// DeclaredModulePath returns the still templated entries that follow a
// -p or --module-path token in the manifest's JVM arguments.
func DeclaredModulePath(m *manifest.Manifest, p manifest.Platform) []string {
	if m.Arguments == nil {
		return nil
	}
	args := manifest.Expand(m.Arguments.JVM, p)
	var out []string
	for i := 0; i < len(args)-1; i++ {
		if !IsModuleFlag(args[i]) {
			continue
		}
		i++
		out = append(out, SplitPathList(args[i])...)
	}
	return out
}

// SplitPathList splits a module or class path value, accepting the template
// separator as well as the host separator.
func SplitPathList(s string) []string {
	s = strings.ReplaceAll(s, "${classpath_separator}", string(os.PathListSeparator))
	var out []string
	for _, e := range filepath.SplitList(s) {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func declaredModuleFiles(m *manifest.Manifest, p manifest.Platform) map[string]struct{} {
	out := make(map[string]struct{})
	for _, e := range DeclaredModulePath(m, p) {
		out[path.Base(filepath.ToSlash(e))] = struct{}{}
	}
	return out
}

// Canonical is the form used to compare two host paths.
func Canonical(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	p = filepath.Clean(p)
	if runtime.GOOS == "windows" {
		p = strings.ToLower(p)
	}
	return p
}

// Paths returns the local paths of libs having one of kinds, in order, with
// duplicate canonical paths removed.
func Paths(libs []ResolvedLibrary, kinds ...Kind) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	var out []string
	for _, l := range libs {
		if l.Unresolved || l.LocalPath == "" || !slices.Contains(kinds, l.Kind) {
			continue
		}
		if seen.Add(Canonical(l.LocalPath)) {
			out = append(out, l.LocalPath)
		}
	}
	return out
}

// Dedup removes entries sharing a canonical path, keeping the first.
func Dedup(paths []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen.Add(Canonical(p)) {
			out = append(out, p)
		}
	}
	return out
}

func JoinPaths(paths []string) string {
	return strings.Join(paths, string(os.PathListSeparator))
}
