package resolve_versions

import (
	"errors"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/mrmelon54/mc-launch-engine/manifest"
	"go.uber.org/zap"
)

// Resolver flattens a version manifest with its inheritsFrom chain. Nothing is
// cached between calls because parent manifests may change between launches.
type Resolver struct {
	store *manifest.Store
	log   *zap.Logger
}

func NewResolver(store *manifest.Store, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{store: store, log: log}
}

func (r *Resolver) Resolve(id string) (*manifest.Manifest, error) {
	merged, err := r.store.Load(id)
	if err != nil {
		return nil, err
	}
	merged.Lineage = []string{merged.ID}

	visited := mapset.NewThreadUnsafeSet[string](id, merged.ID)
	declaredIn := merged.ID
	next := merged.InheritsFrom
	for next != "" {
		if visited.Contains(next) {
			r.log.Warn("Inheritance cycle detected, stopping", zap.String("version", id), zap.String("parent", next))
			break
		}
		visited.Add(next)

		parent, err := r.loadParent(declaredIn, next)
		if errors.Is(err, manifest.ErrManifestNotFound) {
			// override packs frequently ship without their parent
			r.log.Warn("Parent manifest missing, using partial inheritance", zap.String("version", id), zap.String("parent", next))
			break
		}
		if err != nil {
			return nil, err
		}
		merged = Merge(merged, parent)
		declaredIn = parent.ID
		next = parent.InheritsFrom
	}
	return merged, nil
}

func (r *Resolver) loadParent(childID, parentID string) (*manifest.Manifest, error) {
	m, err := r.store.Load(parentID)
	if !errors.Is(err, manifest.ErrManifestNotFound) {
		return m, err
	}
	return r.store.LoadIn(childID, parentID)
}

// Merge folds parent into child. Child libraries shadow any parent library
// with the same group:artifact[:classifier] key whatever its version; scalar
// fields fall back to the parent only when the child leaves them empty.
func Merge(child, parent *manifest.Manifest) *manifest.Manifest {
	out := *child
	out.Libraries = make([]manifest.Library, 0, len(child.Libraries)+len(parent.Libraries))
	out.Libraries = append(out.Libraries, child.Libraries...)

	keys := mapset.NewThreadUnsafeSet[string]()
	for _, l := range child.Libraries {
		keys.Add(manifest.LibraryKey(l.Name))
	}
	for _, l := range parent.Libraries {
		key := manifest.LibraryKey(l.Name)
		if keys.Contains(key) {
			continue
		}
		keys.Add(key)
		out.Libraries = append(out.Libraries, l)
	}

	if out.MainClass == "" {
		out.MainClass = parent.MainClass
	}
	if out.Type == "" {
		out.Type = parent.Type
	}
	if out.AssetIndex == nil {
		out.AssetIndex = parent.AssetIndex
	}
	if out.Assets == "" {
		out.Assets = parent.Assets
	}
	if out.JavaVersion == nil {
		out.JavaVersion = parent.JavaVersion
	}
	if out.Jar == "" && out.Downloads["client"].URL == "" {
		out.Jar = parent.JarID()
	}
	if len(out.Downloads) == 0 {
		out.Downloads = parent.Downloads
	}

	// whichever side declares arguments owns both argument fields
	if out.Arguments == nil && out.MinecraftArguments == "" {
		out.Arguments = parent.Arguments
		out.MinecraftArguments = parent.MinecraftArguments
	}

	out.Lineage = append(append([]string{}, child.Lineage...), parent.ID)
	return &out
}
