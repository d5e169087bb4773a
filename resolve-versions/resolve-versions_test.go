package resolve_versions

import (
	"encoding/json"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"
	"github.com/mrmelon54/mc-launch-engine/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func writeManifest(t *testing.T, fs billy.Filesystem, p string, m manifest.Manifest) {
	t.Helper()
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, util.WriteFile(fs, p, raw, 0644))
}

func lib(name string) manifest.Library {
	return manifest.Library{Name: name}
}

func libNames(m *manifest.Manifest) []string {
	a := make([]string, 0, len(m.Libraries))
	for _, l := range m.Libraries {
		a = append(a, l.Name)
	}
	return a
}

func vanilla() manifest.Manifest {
	return manifest.Manifest{
		ID:         "1.20",
		MainClass:  "net.minecraft.client.main.Main",
		AssetIndex: &manifest.AssetIndexRef{ID: "5", URL: "https://example.invalid/5.json"},
		Downloads:  map[string]manifest.Artifact{"client": {URL: "https://example.invalid/client.jar", Size: 10}},
		Libraries: []manifest.Library{
			lib("com.google.guava:guava:31.1"),
			lib("org.ow2.asm:asm:9.3"),
			lib("com.mojang:brigadier:1.0.18"),
		},
		Arguments: &manifest.Arguments{Game: []manifest.Token{manifest.Literal("--username")}},
	}
}

func forge() manifest.Manifest {
	return manifest.Manifest{
		ID:           "1.20-forge",
		InheritsFrom: "1.20",
		MainClass:    "cpw.mods.bootstraplauncher.BootstrapLauncher",
		Libraries: []manifest.Library{
			lib("net.minecraftforge:forge:1.20-47.0"),
			lib("net.minecraftforge:forge:1.20-47.0:client"),
			lib("org.ow2.asm:asm:9.5"),
		},
	}
}

func TestResolve_ChildShadowsParent(t *testing.T) {
	fs := memfs.New()
	writeManifest(t, fs, manifest.ManifestPath("1.20"), vanilla())
	writeManifest(t, fs, manifest.ManifestPath("1.20-forge"), forge())

	r := NewResolver(manifest.NewStore(fs), nil)
	m, err := r.Resolve("1.20-forge")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"net.minecraftforge:forge:1.20-47.0",
		"net.minecraftforge:forge:1.20-47.0:client",
		"org.ow2.asm:asm:9.5",
		"com.google.guava:guava:31.1",
		"com.mojang:brigadier:1.0.18",
	}, libNames(m))
	assert.Equal(t, "cpw.mods.bootstraplauncher.BootstrapLauncher", m.MainClass)
	assert.Equal(t, "5", m.AssetIndexID())
	assert.Equal(t, "1.20", m.JarID())
	assert.NotNil(t, m.Arguments)
	assert.Equal(t, []string{"1.20-forge", "1.20"}, m.Lineage)
}

func TestResolve_DeepChainAndIdempotence(t *testing.T) {
	fs := memfs.New()
	writeManifest(t, fs, manifest.ManifestPath("1.20"), vanilla())
	writeManifest(t, fs, manifest.ManifestPath("1.20-forge"), forge())
	writeManifest(t, fs, manifest.ManifestPath("pack"), manifest.Manifest{
		ID:           "pack",
		InheritsFrom: "1.20-forge",
		Libraries:    []manifest.Library{lib("com.google.guava:guava:32.0")},
	})

	r := NewResolver(manifest.NewStore(fs), nil)
	first, err := r.Resolve("pack")
	require.NoError(t, err)
	assert.Equal(t, "com.google.guava:guava:32.0", first.Libraries[0].Name)
	assert.Len(t, first.Libraries, 5)

	// store the flattened manifest and resolve it again
	flat := *first
	flat.ID = "pack-flat"
	writeManifest(t, fs, manifest.ManifestPath("pack-flat"), flat)
	second, err := r.Resolve("pack-flat")
	require.NoError(t, err)
	if diff := cmp.Diff(libNames(first), libNames(second)); diff != "" {
		t.Fatalf("library set changed (-first +second):\n%s", diff)
	}
}

func TestResolve_MissingParentIsPartial(t *testing.T) {
	fs := memfs.New()
	writeManifest(t, fs, manifest.ManifestPath("1.20-forge"), forge())

	m, err := NewResolver(manifest.NewStore(fs), nil).Resolve("1.20-forge")
	require.NoError(t, err)
	assert.Len(t, m.Libraries, 3)
	assert.Nil(t, m.AssetIndex)
}

func TestResolve_ColocatedParent(t *testing.T) {
	fs := memfs.New()
	writeManifest(t, fs, manifest.ManifestPath("1.20-forge"), forge())
	writeManifest(t, fs, "versions/1.20-forge/1.20.json", vanilla())

	m, err := NewResolver(manifest.NewStore(fs), nil).Resolve("1.20-forge")
	require.NoError(t, err)
	assert.Len(t, m.Libraries, 5)
	assert.Equal(t, "5", m.AssetIndexID())
}

func TestResolve_Cycle(t *testing.T) {
	fs := memfs.New()
	writeManifest(t, fs, manifest.ManifestPath("a"), manifest.Manifest{ID: "a", InheritsFrom: "b", Libraries: []manifest.Library{lib("x:a:1")}})
	writeManifest(t, fs, manifest.ManifestPath("b"), manifest.Manifest{ID: "b", InheritsFrom: "a", Libraries: []manifest.Library{lib("x:b:1")}})

	m, err := NewResolver(manifest.NewStore(fs), nil).Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x:a:1", "x:b:1"}, libNames(m))
}

func TestResolve_ParseError(t *testing.T) {
	fs := memfs.New()
	writeManifest(t, fs, manifest.ManifestPath("1.20-forge"), forge())
	require.NoError(t, util.WriteFile(fs, manifest.ManifestPath("1.20"), []byte("{nope"), 0644))

	_, err := NewResolver(manifest.NewStore(fs), nil).Resolve("1.20-forge")
	var parseErr *manifest.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestMerge_LegacyArgumentsStayExclusive(t *testing.T) {
	parent := &manifest.Manifest{ID: "1.7.10", Arguments: &manifest.Arguments{}}
	child := &manifest.Manifest{ID: "1.7.10-forge", MinecraftArguments: "--tweakClass x"}
	m := Merge(child, parent)
	assert.True(t, m.IsLegacy())
	assert.Nil(t, m.Arguments)
}
