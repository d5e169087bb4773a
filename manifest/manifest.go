package manifest

import (
	"errors"
	"fmt"
)

var (
	ErrManifestNotFound = errors.New("manifest not found")
	ErrNoArguments      = errors.New("manifest has neither arguments nor minecraftArguments")
)

// ParseError reports a manifest document that exists but is not valid JSON.
type ParseError struct {
	ID  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse manifest %q: %v", e.ID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Manifest is a single version document from versions/<id>/<id>.json. After
// resolution it also carries every field inherited from its ancestors.
type Manifest struct {
	ID                 string              `json:"id"`
	InheritsFrom       string              `json:"inheritsFrom,omitempty"`
	Jar                string              `json:"jar,omitempty"`
	Type               string              `json:"type,omitempty"`
	MainClass          string              `json:"mainClass,omitempty"`
	Assets             string              `json:"assets,omitempty"`
	AssetIndex         *AssetIndexRef      `json:"assetIndex,omitempty"`
	Downloads          map[string]Artifact `json:"downloads,omitempty"`
	Libraries          []Library           `json:"libraries"`
	Arguments          *Arguments          `json:"arguments,omitempty"`
	MinecraftArguments string              `json:"minecraftArguments,omitempty"`
	JavaVersion        *JavaVersion        `json:"javaVersion,omitempty"`

	// Lineage lists the ids merged into this manifest, child first.
	Lineage []string `json:"-"`
}

type AssetIndexRef struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	SHA1      string `json:"sha1,omitempty"`
	Size      int64  `json:"size,omitempty"`
	TotalSize int64  `json:"totalSize,omitempty"`
}

type Artifact struct {
	Path string `json:"path,omitempty"`
	URL  string `json:"url"`
	SHA1 string `json:"sha1,omitempty"`
	Size int64  `json:"size,omitempty"`
}

type JavaVersion struct {
	Component    string `json:"component"`
	MajorVersion int    `json:"majorVersion"`
}

type Arguments struct {
	Game []Token `json:"game,omitempty"`
	JVM  []Token `json:"jvm,omitempty"`
}

type LibraryDownloads struct {
	Artifact    *Artifact           `json:"artifact,omitempty"`
	Classifiers map[string]Artifact `json:"classifiers,omitempty"`
}

type Library struct {
	Name      string            `json:"name"`
	URL       string            `json:"url,omitempty"`
	Downloads *LibraryDownloads `json:"downloads,omitempty"`
	Natives   map[string]string `json:"natives,omitempty"`
	Rules     []Rule            `json:"rules,omitempty"`
	Extract   *ExtractRules     `json:"extract,omitempty"`
}

type ExtractRules struct {
	Exclude []string `json:"exclude,omitempty"`
}

// Artifact returns the main artifact download, or nil for libraries that are
// not downloaded through the manifest.
func (l Library) Artifact() *Artifact {
	if l.Downloads == nil {
		return nil
	}
	return l.Downloads.Artifact
}

// AssetIndexID prefers assetIndex.id over the legacy assets field.
func (m *Manifest) AssetIndexID() string {
	if m.AssetIndex != nil && m.AssetIndex.ID != "" {
		return m.AssetIndex.ID
	}
	if m.Assets != "" {
		return m.Assets
	}
	return "legacy"
}

// IsLegacy reports whether the single minecraftArguments string is authoritative.
func (m *Manifest) IsLegacy() bool {
	return m.Arguments == nil && m.MinecraftArguments != ""
}

func (m *Manifest) Validate() error {
	if m.Arguments == nil && m.MinecraftArguments == "" {
		return fmt.Errorf("%s: %w", m.ID, ErrNoArguments)
	}
	return nil
}

// JarID is the version id whose jar is the client jar for this manifest.
func (m *Manifest) JarID() string {
	if m.Jar != "" {
		return m.Jar
	}
	return m.ID
}
