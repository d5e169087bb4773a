package launcher

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	asset_engine "github.com/mrmelon54/mc-launch-engine/asset-engine"
	"github.com/mrmelon54/mc-launch-engine/history"
	launch_args "github.com/mrmelon54/mc-launch-engine/launch-args"
	"github.com/mrmelon54/mc-launch-engine/manifest"
	"github.com/mrmelon54/mc-launch-engine/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

var linux = manifest.Platform{OSName: "linux", Arch: "x86_64"}

func sha1Hex(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

func nativeJar(t *testing.T) []byte {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	w, err := zw.Create("liblwjgl.so")
	require.NoError(t, err)
	_, _ = w.Write([]byte("elf"))
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// fakeServer hosts one vanilla style version: a library, a native library,
// the client jar, an asset index and its single object.
type fakeServer struct {
	mux      *http.ServeMux
	counter  test.Counter
	manifest *manifest.Manifest
}

func serve(mux *http.ServeMux, p string, body []byte) {
	mux.HandleFunc(p, func(rw http.ResponseWriter, req *http.Request) {
		_, _ = rw.Write(body)
	})
}

func newFakeServer(t *testing.T) *fakeServer {
	s := &fakeServer{mux: http.NewServeMux()}

	lib := []byte("library jar")
	native := nativeJar(t)
	client := []byte("client jar")
	object := []byte("click")
	objectHash := sha1Hex(object)
	index, err := json.Marshal(asset_engine.AssetIndex{Objects: map[string]asset_engine.Object{
		"sounds/click.ogg": {Hash: objectHash, Size: int64(len(object))},
	}})
	require.NoError(t, err)

	serve(s.mux, "/org/example/lib/1.0/lib-1.0.jar", lib)
	serve(s.mux, "/org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar", native)
	serve(s.mux, "/client.jar", client)
	serve(s.mux, "/indexes/5.json", index)
	serve(s.mux, "/"+objectHash[:2]+"/"+objectHash, object)

	s.manifest = &manifest.Manifest{
		ID:         "1.20",
		Type:       "release",
		MainClass:  "net.minecraft.client.main.Main",
		AssetIndex: &manifest.AssetIndexRef{ID: "5", URL: "https://meta.invalid/indexes/5.json", SHA1: sha1Hex(index)},
		Downloads: map[string]manifest.Artifact{
			"client": {URL: "https://meta.invalid/client.jar", SHA1: sha1Hex(client), Size: int64(len(client))},
		},
		Libraries: []manifest.Library{
			{
				Name: "org.example:lib:1.0",
				Downloads: &manifest.LibraryDownloads{Artifact: &manifest.Artifact{
					Path: "org/example/lib/1.0/lib-1.0.jar",
					URL:  "https://libraries.invalid/org/example/lib/1.0/lib-1.0.jar",
					SHA1: sha1Hex(lib),
					Size: int64(len(lib)),
				}},
			},
			{
				Name:    "org.lwjgl:lwjgl:3.3.1",
				Natives: map[string]string{"linux": "natives-linux"},
				Downloads: &manifest.LibraryDownloads{Classifiers: map[string]manifest.Artifact{
					"natives-linux": {
						Path: "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar",
						URL:  "https://libraries.invalid/org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar",
						SHA1: sha1Hex(native),
						Size: int64(len(native)),
					},
				}},
			},
		},
		Arguments: &manifest.Arguments{
			Game: []manifest.Token{
				manifest.Literal("--username"), manifest.Literal("${auth_player_name}"),
				manifest.Literal("--gameDir"), manifest.Literal("${game_directory}"),
			},
			JVM: []manifest.Token{
				manifest.Literal("-Djava.library.path=${natives_directory}"),
				manifest.Literal("-cp"), manifest.Literal("${classpath}"),
			},
		},
	}
	return s
}

func (s *fakeServer) launcher(t *testing.T, fs billy.Filesystem) *Launcher {
	raw, err := json.Marshal(s.manifest)
	require.NoError(t, err)
	require.NoError(t, manifest.NewStore(fs).Save(s.manifest.ID, raw))

	l := New(test.NewLockedFS(fs), test.NewTestServer(s.counter.Wrap(s.mux)), Config{
		RootDir:      "/mc",
		ResourcesURL: "https://resources.invalid/",
		Platform:     linux,
		SettleDelay:  20 * time.Millisecond,
		Download:     asset_engine.Options{Concurrency: 2, BaseDelay: time.Millisecond},
	}, nil, nil)
	l.Remote = nil
	return l
}

func cfg() launch_args.Config {
	return launch_args.Config{GameDir: "/mc", JavaPath: "java", LauncherName: "engine", LauncherVersion: "1.0"}
}

func TestLauncher_Arguments(t *testing.T) {
	fs := memfs.New()
	s := newFakeServer(t)
	l := s.launcher(t, fs)

	var reports []asset_engine.Progress
	prep, args, err := l.Arguments(context.Background(), "1.20", launch_args.OfflineAccount("Steve"), cfg(), func(p asset_engine.Progress) {
		reports = append(reports, p)
	})
	require.NoError(t, err)
	assert.Equal(t, asset_engine.AcquisitionResult{Total: 4, Succeeded: 4, Bytes: prep.Result.Bytes}, prep.Result)
	require.NotEmpty(t, reports)
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i].Percent, reports[i-1].Percent, reports[i].Message)
	}
	assert.LessOrEqual(t, reports[0].Percent, LibraryShare)
	assert.Equal(t, 100, reports[len(reports)-1].Percent)

	for _, p := range []string{
		"libraries/org/example/lib/1.0/lib-1.0.jar",
		"libraries/org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar",
		"versions/1.20/1.20.jar",
		"versions/1.20/natives/liblwjgl.so",
	} {
		_, err := fs.Stat(p)
		assert.NoError(t, err, p)
	}
	for _, lib := range prep.Libraries {
		assert.False(t, lib.Missing, lib.Library.Name)
	}

	assert.Contains(t, args.JVM, "-Djava.library.path="+filepath.Join("/mc", "versions/1.20/natives"))
	assert.Equal(t, []string{
		filepath.Join("/mc", "libraries/org/example/lib/1.0/lib-1.0.jar"),
		filepath.Join("/mc", "versions/1.20/1.20.jar"),
	}, args.Classpath)
	assert.Contains(t, args.Game, "Steve")

	// everything is on disk now
	before := s.counter.Total()
	prep, _, err = l.Arguments(context.Background(), "1.20", launch_args.OfflineAccount("Steve"), cfg(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, prep.Result.Total)
	assert.Equal(t, before, s.counter.Total())
}

func TestLauncher_IncompleteAcquisition(t *testing.T) {
	fs := memfs.New()
	s := newFakeServer(t)
	s.manifest.Libraries[0].Downloads.Artifact.URL = "https://libraries.invalid/gone.jar"
	l := s.launcher(t, fs)

	prep, args, err := l.Arguments(context.Background(), "1.20", launch_args.OfflineAccount("Steve"), cfg(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, prep.Result.Failed)
	assert.NotNil(t, args)

	l.conf.RequireComplete = true
	_, _, err = l.Arguments(context.Background(), "1.20", launch_args.OfflineAccount("Steve"), cfg(), nil)
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Contains(t, err.Error(), "org.example:lib:1.0")
}

func TestLauncher_AssetIndexFailureAborts(t *testing.T) {
	fs := memfs.New()
	s := newFakeServer(t)
	s.manifest.AssetIndex.URL = "https://meta.invalid/indexes/missing.json"
	l := s.launcher(t, fs)

	_, _, err := l.Arguments(context.Background(), "1.20", launch_args.OfflineAccount("Steve"), cfg(), nil)
	assert.ErrorIs(t, err, asset_engine.ErrAssetIndexFetchFailed)
}

func TestLauncher_InstallsMissingManifest(t *testing.T) {
	s := newFakeServer(t)
	raw, err := json.Marshal(s.manifest)
	require.NoError(t, err)
	serve(s.mux, "/v1/packages/abc/1.20.json", raw)
	list, err := json.Marshal(map[string]any{
		"latest":   map[string]string{"release": "1.20", "snapshot": "1.20"},
		"versions": []map[string]string{{"id": "1.20", "type": "release", "url": "https://meta.invalid/v1/packages/abc/1.20.json", "sha1": sha1Hex(raw)}},
	})
	require.NoError(t, err)
	serve(s.mux, "/mc/game/version_manifest_v2.json", list)

	fs := memfs.New()
	client := test.NewTestServer(s.mux)
	l := New(fs, client, Config{
		RootDir:            "/mc",
		VersionManifestURL: "https://meta.invalid/mc/game/version_manifest_v2.json",
		Platform:           linux,
	}, nil, nil)

	m, err := l.Resolve(context.Background(), "1.20")
	require.NoError(t, err)
	assert.Equal(t, "net.minecraft.client.main.Main", m.MainClass)
	assert.True(t, l.Store.Exists("1.20"))

	_, err = l.Resolve(context.Background(), "9.9")
	assert.Error(t, err)
}

func TestLauncher_CheckMods(t *testing.T) {
	fs := memfs.New()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	w, err := zw.Create("fabric.mod.json")
	require.NoError(t, err)
	_, _ = w.Write([]byte(`{"schemaVersion":1,"id":"oldmod","version":"1.0","depends":{"minecraft":"1.16.5"}}`))
	require.NoError(t, zw.Close())
	require.NoError(t, util.WriteFile(fs, "mods/oldmod.jar", buf.Bytes(), 0644))

	l := New(fs, http.DefaultClient, Config{RootDir: "/mc", Platform: linux}, nil, nil)
	bad := l.CheckMods("/mc", "1.20.4")
	require.Len(t, bad, 1)
	assert.Equal(t, "oldmod", bad[0].ID)
	assert.Empty(t, l.CheckMods("/mc", "1.16.5"))

	// an instance game dir inside the root only sees its own mods
	assert.Empty(t, l.CheckMods("/mc/instances/pack", "1.20.4"))
	require.NoError(t, util.WriteFile(fs, "instances/pack/mods/oldmod.jar", buf.Bytes(), 0644))
	bad = l.CheckMods("/mc/instances/pack", "1.20.4")
	require.Len(t, bad, 1)
	assert.Equal(t, "oldmod", bad[0].ID)

	// game dirs outside the root are read from the host
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(outside, "mods"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "mods", "oldmod.jar"), buf.Bytes(), 0644))
	bad = l.CheckMods(outside, "1.20.4")
	require.Len(t, bad, 1)
	assert.Equal(t, "oldmod", bad[0].ID)
}

func TestLauncher_Launch(t *testing.T) {
	fs := memfs.New()
	s := newFakeServer(t)
	l := s.launcher(t, fs)
	store, err := history.Open(filepath.Join(t.TempDir(), "history.sqlite3.db"), nil)
	require.NoError(t, err)
	defer store.Close()
	l.History = store

	pl := &fakeLauncher{exit: make(chan error)}
	l.Process = pl
	session, err := l.Launch(context.Background(), "1.20", launch_args.OfflineAccount("Steve"), cfg(), nil)
	require.NoError(t, err)
	assert.Equal(t, 42, session.Process.Pid())
	assert.Equal(t, "net.minecraft.client.main.Main", pl.started.MainClass)

	pl.exit <- nil
	assert.NoError(t, <-session.Done())

	pl = &fakeLauncher{exit: make(chan error, 1)}
	pl.exit <- errors.New("exit status 1")
	l.Process = pl
	_, err = l.Launch(context.Background(), "1.20", launch_args.OfflineAccount("Steve"), cfg(), nil)
	assert.ErrorIs(t, err, ErrProcessExited)
	assert.EqualError(t, err, "process exited during startup: exit status 1")

	launches, err := store.ListLaunches(context.Background(), "1.20", 10)
	require.NoError(t, err)
	require.Len(t, launches, 2)
	assert.Equal(t, "process exited during startup: exit status 1", launches[0].Error)
	assert.Empty(t, launches[1].Error)

	acquisitions, err := store.ListAcquisitions(context.Background(), "1.20", 10)
	require.NoError(t, err)
	assert.Len(t, acquisitions, 2)
	sort.Slice(acquisitions, func(i, j int) bool { return acquisitions[i].ID < acquisitions[j].ID })
	assert.Equal(t, 4, acquisitions[0].Total)
}

func TestLauncher_Plan(t *testing.T) {
	fs := memfs.New()
	s := newFakeServer(t)
	l := s.launcher(t, fs)

	_, libs, err := l.Plan(context.Background(), "1.20", launch_args.OfflineAccount("Steve"), cfg())
	assert.ErrorIs(t, err, launch_args.ErrMissingClientJar)
	assert.Len(t, libs, 2)
	assert.Equal(t, 0, s.counter.Total())

	_, _, err = l.Arguments(context.Background(), "1.20", launch_args.OfflineAccount("Steve"), cfg(), nil)
	require.NoError(t, err)
	args, _, err := l.Plan(context.Background(), "1.20", launch_args.OfflineAccount("Steve"), cfg())
	require.NoError(t, err)
	assert.Equal(t, "net.minecraft.client.main.Main", args.MainClass)

	_, _, err = l.Plan(context.Background(), "missing", launch_args.OfflineAccount("Steve"), cfg())
	assert.ErrorIs(t, err, manifest.ErrManifestNotFound)
}
