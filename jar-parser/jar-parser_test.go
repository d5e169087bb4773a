package jar_parser

import (
	"archive/zip"
	"bytes"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func buildJar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const fabricModJson = `{
  "schemaVersion": 1,
  "id": "examplemod",
  "version": "1.2.0",
  "name": "Example Mod",
  "environment": "*",
  "depends": {"fabricloader": ">=0.14.0", "minecraft": "~1.20.1"}
}`

const quiltModJson = `{
  "schema_version": 1,
  "quilt_loader": {
    "group": "com.example",
    "id": "quiltmod",
    "version": "0.3.0",
    "metadata": {"name": "Quilt Mod"},
    "depends": ["quilt_loader", {"id": "minecraft", "versions": ">=1.19 <1.20"}]
  },
  "minecraft": {"environment": "client"}
}`

const forgeModsToml = `modLoader="javafml"
loaderVersion="[47,)"

[[mods]]
modId="forgemod"
version="2.0.0"
displayName="Forge Mod"

[[dependencies.forgemod]]
modId="forge"
mandatory=true
versionRange="[47,)"
side="BOTH"

[[dependencies.forgemod]]
modId="minecraft"
mandatory=true
versionRange="[1.20,1.21)"
side="BOTH"
`

const neoforgeModsToml = `modLoader="javafml"
loaderVersion="[1,)"

[[mods]]
modId="neomod"
version="1.0.0"
displayName="Neo Mod"

[[dependencies.neomod]]
modId="minecraft"
type="required"
versionRange="[1.20.4]"
side="BOTH"
`

func TestJarParser(t *testing.T) {
	for _, i := range []struct {
		name    string
		file    string
		body    string
		id      string
		version string
		accepts string
		rejects string
	}{
		{"fabric", "fabric.mod.json", fabricModJson, "examplemod", "1.2.0", "1.20.4", "1.21"},
		{"quilt", "quilt.mod.json", quiltModJson, "quiltmod", "0.3.0", "1.19.2", "1.20.1"},
		{"forge", "META-INF/mods.toml", forgeModsToml, "forgemod", "2.0.0", "1.20.1", "1.21"},
		{"neoforge", "META-INF/neoforge.mods.toml", neoforgeModsToml, "neomod", "1.0.0", "1.20.4", "1.20.1"},
	} {
		t.Run(i.name, func(t *testing.T) {
			jar := buildJar(t, map[string]string{i.file: i.body, "a/Main.class": "cafebabe"})
			metadata, err := JarParser(bytes.NewReader(jar), int64(len(jar)))
			require.NoError(t, err)
			assert.Equal(t, []string{i.name}, metadata.Loaders)
			assert.Equal(t, i.id, metadata.ID)
			assert.Equal(t, i.version, metadata.VersionNumber)
			assert.Len(t, metadata.GameVersions, 1)
			assert.True(t, metadata.Supports(i.accepts))
			assert.False(t, metadata.Supports(i.rejects))
			assert.True(t, metadata.Supports("24w10a"))
		})
	}
}

func TestJarParser_Errors(t *testing.T) {
	_, err := JarParser(bytes.NewReader([]byte("not a zip")), 9)
	assert.Error(t, err)

	jar := buildJar(t, map[string]string{"fabric.mod.json": "{"})
	_, err = JarParser(bytes.NewReader(jar), int64(len(jar)))
	assert.Error(t, err)

	jar = buildJar(t, map[string]string{"a.txt": "hi"})
	meta, err := JarParser(bytes.NewReader(jar), int64(len(jar)))
	assert.NoError(t, err)
	assert.Empty(t, meta.Loaders)
	assert.True(t, meta.Supports("1.20.1"))
}

func TestScanMods(t *testing.T) {
	fs := memfs.New()
	mods, err := ScanMods(fs, "mods", nil)
	assert.NoError(t, err)
	assert.Empty(t, mods)

	require.NoError(t, util.WriteFile(fs, "mods/b-forge.jar", buildJar(t, map[string]string{"META-INF/mods.toml": forgeModsToml}), 0644))
	require.NoError(t, util.WriteFile(fs, "mods/a-fabric.jar", buildJar(t, map[string]string{"fabric.mod.json": fabricModJson}), 0644))
	require.NoError(t, util.WriteFile(fs, "mods/broken.jar", []byte("nope"), 0644))
	require.NoError(t, util.WriteFile(fs, "mods/readme.txt", []byte("hi"), 0644))
	require.NoError(t, util.WriteFile(fs, "mods/old.jar.disabled", []byte("nope"), 0644))

	mods, err = ScanMods(fs, "mods", nil)
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Equal(t, "a-fabric.jar", mods[0].Source)
	assert.Equal(t, "b-forge.jar", mods[1].Source)

	bad := Incompatible(mods, "1.21")
	assert.Len(t, bad, 2)
	bad = Incompatible(mods, "1.20.1")
	assert.Empty(t, bad)
	bad = Incompatible(mods, "1.20.0")
	require.Len(t, bad, 1)
	assert.Equal(t, "examplemod", bad[0].ID)
}
