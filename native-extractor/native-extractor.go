package native_extractor

import (
	"archive/zip"
	"fmt"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	library_resolver "github.com/mrmelon54/mc-launch-engine/library-resolver"
	"go.uber.org/zap"
	"io"
	"os"
	"path"
	"strings"
)

var sharedObjectExt = []string{".dll", ".so", ".dylib", ".jnilib"}

// NativesDir is the slash path of the extracted natives for a version.
func NativesDir(versionID string) string {
	return path.Join("versions", versionID, "natives")
}

type Extractor struct {
	Files billy.Filesystem
	log   *zap.Logger
}

func NewExtractor(files billy.Filesystem, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{Files: files, log: log}
}

// Extract clears nativesDir and copies the shared objects of every native
// library into it, flattened. A broken archive is logged and skipped.
func (e *Extractor) Extract(libs []library_resolver.ResolvedLibrary, nativesDir string) error {
	if err := util.RemoveAll(e.Files, nativesDir); err != nil {
		return fmt.Errorf("clear natives: %w", err)
	}
	if err := e.Files.MkdirAll(nativesDir, 0755); err != nil {
		return fmt.Errorf("create natives: %w", err)
	}

	for _, l := range libs {
		if l.Kind != library_resolver.KindNative || l.Missing {
			continue
		}
		var exclude []string
		if l.Library.Extract != nil {
			exclude = l.Library.Extract.Exclude
		}
		n, err := e.extractArchive(l.RelPath, nativesDir, exclude)
		if err != nil {
			e.log.Warn("Failed to extract natives", zap.String("library", l.Library.Name), zap.Error(err))
			continue
		}
		e.log.Debug("Extracted natives", zap.String("library", l.Library.Name), zap.Int("files", n))
	}
	return nil
}

func (e *Extractor) extractArchive(archive, nativesDir string, exclude []string) (int, error) {
	f, err := e.Files.Open(archive)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			e.log.Debug("Close archive", zap.String("path", archive), zap.Error(err))
		}
	}()
	fi, err := e.Files.Stat(archive)
	if err != nil {
		return 0, err
	}
	z, err := zip.NewReader(f, fi.Size())
	if err != nil {
		return 0, err
	}

	n := 0
	for _, zf := range z.File {
		if strings.HasSuffix(zf.Name, "/") || excluded(zf.Name, exclude) || !isSharedObject(zf.Name) {
			continue
		}
		if err := e.writeEntry(zf, path.Join(nativesDir, path.Base(zf.Name))); err != nil {
			return n, fmt.Errorf("%s: %w", zf.Name, err)
		}
		n++
	}
	return n, nil
}

func (e *Extractor) writeEntry(zf *zip.File, dst string) (err error) {
	r, err := zf.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	w, err := e.Files.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
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

func isSharedObject(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, i := range sharedObjectExt {
		if ext == i {
			return true
		}
	}
	return false
}

func excluded(name string, exclude []string) bool {
	for _, i := range exclude {
		if strings.HasPrefix(name, i) {
			return true
		}
	}
	return false
}
