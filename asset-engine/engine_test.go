package asset_engine

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/mrmelon54/mc-launch-engine/manifest"
	"github.com/mrmelon54/mc-launch-engine/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// assetServer serves an index at /indexes/<id>.json and every object body
// at /<hh>/<hash>.
type assetServer struct {
	counter test.Counter
	mux     *http.ServeMux
	index   AssetIndex
}

func newAssetServer(t *testing.T, id string, bodies map[string]string) *assetServer {
	s := &assetServer{mux: http.NewServeMux(), index: AssetIndex{Objects: map[string]Object{}}}
	for name, body := range bodies {
		hash := sha1Hex(body)
		s.index.Objects[name] = Object{Hash: hash, Size: int64(len(body))}
		b := []byte(body)
		s.mux.HandleFunc("/"+hash[:2]+"/"+hash, func(rw http.ResponseWriter, req *http.Request) {
			_, _ = rw.Write(b)
		})
	}
	raw, err := json.Marshal(s.index)
	require.NoError(t, err)
	s.mux.HandleFunc("/indexes/"+id+".json", func(rw http.ResponseWriter, req *http.Request) {
		_, _ = rw.Write(raw)
	})
	return s
}

func (s *assetServer) engine(fs billy.Filesystem) *Engine {
	client := test.NewTestServer(s.counter.Wrap(s.mux))
	dl := NewDownloader(test.NewLockedFS(fs), client, Options{Concurrency: 4, BaseDelay: time.Millisecond}, nil, nil)
	return NewEngine(dl, "https://resources.invalid/", nil)
}

func ref(id string) manifest.AssetIndexRef {
	return manifest.AssetIndexRef{ID: id, URL: "https://meta.invalid/indexes/" + id + ".json"}
}

func TestEngine_Acquire(t *testing.T) {
	fs := memfs.New()
	srv := newAssetServer(t, "5", map[string]string{"sounds/click.ogg": "click"})
	e := srv.engine(fs)

	var reports []Progress
	res, err := e.Acquire(context.Background(), ref("5"), func(p Progress) { reports = append(reports, p) })
	require.NoError(t, err)
	assert.Equal(t, AcquisitionResult{Total: 1, Succeeded: 1, Bytes: 5}, res)
	assert.True(t, res.OK())

	hash := sha1Hex("click")
	raw, err := util.ReadFile(fs, "assets/objects/"+hash[:2]+"/"+hash)
	require.NoError(t, err)
	assert.Equal(t, "click", string(raw))

	_, err = fs.Stat("assets/indexes/5.json")
	assert.NoError(t, err)

	require.NotEmpty(t, reports)
	assert.Equal(t, 0, reports[0].Percent)
	assert.Equal(t, IndexShare, reports[1].Percent)
	assert.Equal(t, 100, reports[len(reports)-1].Percent)

	// second run finds everything and only reads the cached index
	before := srv.counter.Total()
	res, err = e.Acquire(context.Background(), ref("5"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, before, srv.counter.Total())
	assert.Equal(t, 1, srv.counter.Hits("/indexes/5.json"))
}

func TestEngine_Acquire_NothingMissing(t *testing.T) {
	fs := memfs.New()
	srv := newAssetServer(t, "5", map[string]string{"a": "alpha", "b": "beta"})
	raw, err := json.Marshal(srv.index)
	require.NoError(t, err)
	require.NoError(t, util.WriteFile(fs, IndexPath("5"), raw, 0644))
	for _, obj := range srv.index.Objects {
		body := "alpha"
		if obj.Hash == sha1Hex("beta") {
			body = "beta"
		}
		require.NoError(t, util.WriteFile(fs, ObjectPath(obj.Hash), []byte(body), 0644))
	}

	res, err := srv.engine(fs).Acquire(context.Background(), ref("5"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 0, srv.counter.Total())
}

func TestEngine_Acquire_TruncatedObjectIsRefetched(t *testing.T) {
	fs := memfs.New()
	srv := newAssetServer(t, "5", map[string]string{"a": "alpha"})
	hash := sha1Hex("alpha")
	require.NoError(t, util.WriteFile(fs, ObjectPath(hash), []byte("al"), 0644))

	res, err := srv.engine(fs).Acquire(context.Background(), ref("5"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	raw, err := util.ReadFile(fs, ObjectPath(hash))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(raw))
}

func TestEngine_Acquire_CorruptCachedIndex(t *testing.T) {
	fs := memfs.New()
	srv := newAssetServer(t, "5", map[string]string{"a": "alpha"})
	require.NoError(t, util.WriteFile(fs, IndexPath("5"), []byte("{"), 0644))

	res, err := srv.engine(fs).Acquire(context.Background(), ref("5"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, srv.counter.Hits("/indexes/5.json"))
}

func TestEngine_Acquire_IndexFetchFailed(t *testing.T) {
	fs := memfs.New()
	srv := newAssetServer(t, "5", nil)
	_, err := srv.engine(fs).Acquire(context.Background(), ref("missing"), nil)
	assert.ErrorIs(t, err, ErrAssetIndexFetchFailed)

	_, err = srv.engine(fs).Acquire(context.Background(), manifest.AssetIndexRef{ID: "legacy"}, nil)
	assert.ErrorIs(t, err, ErrAssetIndexFetchFailed)
}

func TestEngine_Acquire_LegacyLayout(t *testing.T) {
	fs := memfs.New()
	srv := newAssetServer(t, "pre-1.6", map[string]string{"sound/step/grass1.ogg": "grass"})
	hash := sha1Hex("grass")
	raw, err := json.Marshal(srv.index)
	require.NoError(t, err)
	require.NoError(t, util.WriteFile(fs, IndexPath("pre-1.6"), raw, 0644))
	require.NoError(t, util.WriteFile(fs, ObjectPath(hash), []byte("grass"), 0644))

	res, err := srv.engine(fs).Acquire(context.Background(), ref("pre-1.6"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, 0, srv.counter.Total())

	copied, err := util.ReadFile(fs, "assets/virtual/legacy/sound/step/grass1.ogg")
	require.NoError(t, err)
	assert.Equal(t, "grass", string(copied))
	// the content addressed copy stays in place
	_, err = fs.Stat(ObjectPath(hash))
	assert.NoError(t, err)
}

func TestObjectPaths(t *testing.T) {
	assert.Equal(t, "assets/objects/ab/abcd1234", ObjectPath("abcd1234"))
	assert.Equal(t, "https://resources.download.minecraft.net/ab/abcd1234", ObjectURL("", "abcd1234"))
	assert.Equal(t, "http://mirror/ab/abcd1234", ObjectURL("http://mirror", "abcd1234"))
	assert.True(t, IsLegacyIndex("legacy", nil))
	assert.True(t, IsLegacyIndex("1.7.10", &AssetIndex{Virtual: true}))
	assert.False(t, IsLegacyIndex("5", &AssetIndex{}))
	assert.True(t, strings.HasPrefix(IndexPath("5"), "assets/indexes/"))
}
