package asset_engine

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/mrmelon54/mc-launch-engine/manifest"
	"go.uber.org/zap"
	"io"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"
)

var ErrAssetIndexFetchFailed = errors.New("asset index fetch failed")

// Engine acquires the objects of an asset index into the content addressed
// store under assets/objects.
type Engine struct {
	Files        billy.Filesystem
	Client       *http.Client
	Downloader   *Downloader
	ResourcesURL string
	log          *zap.Logger
}

func NewEngine(dl *Downloader, resourcesURL string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if resourcesURL == "" {
		resourcesURL = ResourcesURL
	}
	return &Engine{Files: dl.Files, Client: dl.Client, Downloader: dl, ResourcesURL: resourcesURL, log: log}
}

// Acquire downloads every object of the index referenced by ref that is not
// already stored. The returned error is only set when the index itself could
// not be obtained; per object failures are reported in the result.
func (e *Engine) Acquire(ctx context.Context, ref manifest.AssetIndexRef, onProgress ProgressFunc) (AcquisitionResult, error) {
	notify(onProgress, Progress{Percent: 0, Message: "Fetching asset index " + ref.ID})
	idx, err := e.LoadIndex(ctx, ref)
	if err != nil {
		return AcquisitionResult{}, err
	}

	jobs := e.Missing(idx)
	notify(onProgress, Progress{Percent: IndexShare, Total: len(jobs), Message: fmt.Sprintf("%d assets missing", len(jobs))})
	e.log.Info("Asset index loaded", zap.String("index", ref.ID), zap.Int("objects", len(idx.Objects)), zap.Int("missing", len(jobs)))

	var res AcquisitionResult
	if len(jobs) == 0 {
		notify(onProgress, Progress{Percent: 100, Message: "Assets up to date"})
	} else {
		res = e.Downloader.Run(ctx, jobs, onProgress)
	}

	if IsLegacyIndex(ref.ID, idx) && ctx.Err() == nil {
		e.materializeVirtual(idx)
	}
	return res, nil
}

func notify(onProgress ProgressFunc, p Progress) {
	if onProgress != nil {
		onProgress(p)
	}
}

// LoadIndex returns the cached index document, fetching and persisting it
// verbatim when absent or unreadable.
func (e *Engine) LoadIndex(ctx context.Context, ref manifest.AssetIndexRef) (*AssetIndex, error) {
	p := IndexPath(ref.ID)
	raw, err := util.ReadFile(e.Files, p)
	if err == nil {
		idx, err := ParseIndex(raw)
		if err == nil {
			return idx, nil
		}
		e.log.Warn("Cached asset index is unreadable, fetching again", zap.String("index", ref.ID), zap.Error(err))
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetIndexFetchFailed, ref.ID, err)
	}

	if ref.URL == "" {
		return nil, fmt.Errorf("%w: %s: no url", ErrAssetIndexFetchFailed, ref.ID)
	}
	raw, err = e.fetchIndex(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetIndexFetchFailed, ref.ID, err)
	}
	idx, err := ParseIndex(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetIndexFetchFailed, ref.ID, err)
	}
	if err := e.Files.MkdirAll(IndexesDir, 0755); err != nil {
		return nil, err
	}
	if err := util.WriteFile(e.Files, p, raw, 0644); err != nil {
		return nil, err
	}
	return idx, nil
}

func (e *Engine) fetchIndex(ctx context.Context, ref manifest.AssetIndexRef) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if ref.SHA1 != "" {
		sum := sha1.Sum(raw)
		if !strings.EqualFold(hex.EncodeToString(sum[:]), ref.SHA1) {
			return nil, ErrHashMismatch
		}
	}
	return raw, nil
}

// Missing lists a job for every object whose content addressed file is absent
// or has the wrong size. Existing files are never hashed again.
func (e *Engine) Missing(idx *AssetIndex) []DownloadJob {
	names := make([]string, 0, len(idx.Objects))
	for name := range idx.Objects {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]struct{})
	var jobs []DownloadJob
	for _, name := range names {
		obj := idx.Objects[name]
		if _, ok := seen[obj.Hash]; ok {
			continue
		}
		seen[obj.Hash] = struct{}{}
		dest := ObjectPath(obj.Hash)
		if e.present(dest, obj.Size) {
			continue
		}
		jobs = append(jobs, DownloadJob{
			Name: name,
			Hash: obj.Hash,
			URL:  ObjectURL(e.ResourcesURL, obj.Hash),
			Dest: dest,
			Size: obj.Size,
		})
	}
	return jobs
}

func (e *Engine) present(p string, size int64) bool {
	fi, err := e.Files.Stat(p)
	if err != nil {
		return false
	}
	return size <= 0 || fi.Size() == size
}

// materializeVirtual copies every stored object to its logical name under
// assets/virtual/legacy. Failures are logged and skipped.
func (e *Engine) materializeVirtual(idx *AssetIndex) {
	copied := 0
	for name, obj := range idx.Objects {
		dst := path.Join(VirtualDir, name)
		if e.present(dst, obj.Size) {
			continue
		}
		if err := e.copyFile(ObjectPath(obj.Hash), dst); err != nil {
			e.log.Debug("Legacy asset copy failed", zap.String("name", name), zap.Error(err))
			continue
		}
		copied++
	}
	e.log.Info("Legacy asset layout ready", zap.Int("copied", copied))
}

func (e *Engine) copyFile(src, dst string) (err error) {
	r, err := e.Files.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := e.Files.MkdirAll(path.Dir(dst), 0755); err != nil {
		return err
	}
	w, err := e.Files.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		cerr := w.Close()
		if err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(w, r)
	return err
}
