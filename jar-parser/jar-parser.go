package jar_parser

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"
	"io"
	"path"
	"sort"
	"strings"
)

type ModMetadata struct {
	ID            string
	Name          string
	VersionNumber string
	// Source is the jar file name the metadata was read from.
	Source       string
	GameVersions []*semver.Constraints
	Loaders      []string
	Environment  string
}

// Supports reports whether the mod declares itself compatible with the game
// version. Mods without a constraint, and game versions that are not semver
// (snapshots), are assumed compatible.
func (m ModMetadata) Supports(gameVersion string) bool {
	if len(m.GameVersions) == 0 {
		return true
	}
	v, err := semver.NewVersion(gameVersion)
	if err != nil {
		return true
	}
	for _, c := range m.GameVersions {
		if c.Check(v) {
			return true
		}
	}
	return false
}

func JarParser(r io.ReaderAt, size int64) (ModMetadata, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return ModMetadata{}, err
	}

	var meta ModMetadata
	for _, i := range zr.File {
		switch i.Name {
		case "fabric.mod.json":
			var fabricJson FabricJson
			if err := decodeEntry(i, func(r io.Reader) error { return json.NewDecoder(r).Decode(&fabricJson) }); err != nil {
				return ModMetadata{}, fmt.Errorf("%s: %w", i.Name, err)
			}
			meta.ID = fabricJson.Id
			meta.Name = fabricJson.Name
			meta.VersionNumber = fabricJson.Version
			meta.Loaders = append(meta.Loaders, "fabric")
			meta.Environment = fabricJson.Environment
			if mc := fabricJson.Depends["minecraft"]; mc != nil && mc.C != nil {
				meta.GameVersions = append(meta.GameVersions, mc.C)
			}
		case "quilt.mod.json":
			var quiltJson QuiltJson
			if err := decodeEntry(i, func(r io.Reader) error { return json.NewDecoder(r).Decode(&quiltJson) }); err != nil {
				return ModMetadata{}, fmt.Errorf("%s: %w", i.Name, err)
			}
			meta.ID = quiltJson.QuiltLoader.Id
			meta.Name = quiltJson.QuiltLoader.Metadata.Name
			meta.VersionNumber = quiltJson.QuiltLoader.Version
			meta.Loaders = append(meta.Loaders, "quilt")
			meta.Environment = quiltJson.Minecraft.Environment
			for _, j := range quiltJson.QuiltLoader.Depends {
				if j.Id == "minecraft" && j.Version != nil && j.Version.C != nil {
					meta.GameVersions = append(meta.GameVersions, j.Version.C)
				}
			}
		case "META-INF/mods.toml", "META-INF/neoforge.mods.toml":
			var forgeToml ForgeToml
			if err := decodeEntry(i, func(r io.Reader) error {
				_, err := toml.NewDecoder(r).Decode(&forgeToml)
				return err
			}); err != nil {
				return ModMetadata{}, fmt.Errorf("%s: %w", i.Name, err)
			}
			loader := "forge"
			if i.Name == "META-INF/neoforge.mods.toml" {
				loader = "neoforge"
			}
			meta.Loaders = append(meta.Loaders, loader)
			if len(forgeToml.Mods) == 0 {
				continue
			}
			modId := forgeToml.Mods[0].ModID
			meta.ID = modId
			meta.Name = forgeToml.Mods[0].DisplayName
			meta.VersionNumber = forgeToml.Mods[0].Version
			for _, j := range forgeToml.Dependencies[modId] {
				if j.ModID != "minecraft" {
					continue
				}
				versionRange, err := ForgeVersionRange(j.VersionRange)
				if err != nil {
					return ModMetadata{}, fmt.Errorf("%s: %w", i.Name, err)
				}
				meta.GameVersions = append(meta.GameVersions, versionRange)
			}
		}
	}
	return meta, nil
}

func decodeEntry(f *zip.File, decode func(io.Reader) error) error {
	open, err := f.Open()
	if err != nil {
		return err
	}
	defer open.Close()
	return decode(open)
}

// ScanMods parses every jar directly inside dir. Jars that fail to parse are
// logged and skipped. A missing dir holds no mods.
func ScanMods(fs billy.Filesystem, dir string, log *zap.Logger) ([]ModMetadata, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := fs.ReadDir(dir)
	if err != nil {
		if _, statErr := fs.Stat(dir); statErr != nil {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var mods []ModMetadata
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(path.Ext(e.Name()), ".jar") {
			continue
		}
		meta, err := parseFile(fs, path.Join(dir, e.Name()))
		if err != nil {
			log.Warn("Failed to parse mod jar", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		meta.Source = e.Name()
		mods = append(mods, meta)
	}
	return mods, nil
}

func parseFile(fs billy.Filesystem, name string) (ModMetadata, error) {
	f, err := fs.Open(name)
	if err != nil {
		return ModMetadata{}, err
	}
	defer f.Close()
	stat, err := fs.Stat(name)
	if err != nil {
		return ModMetadata{}, err
	}
	return JarParser(f, stat.Size())
}

// Incompatible returns the mods that exclude gameVersion.
func Incompatible(mods []ModMetadata, gameVersion string) []ModMetadata {
	var out []ModMetadata
	for _, m := range mods {
		if !m.Supports(gameVersion) {
			out = append(out, m)
		}
	}
	return out
}
