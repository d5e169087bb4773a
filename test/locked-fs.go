package test

import (
	"github.com/go-git/go-billy/v5"
	"os"
	"sync"
)

// LockedFS serialises the metadata calls of a filesystem that is not safe
// for concurrent use, such as memfs, so it can back the download workers.
type LockedFS struct {
	billy.Filesystem
	mu sync.Mutex
}

var _ billy.Filesystem = &LockedFS{}

func NewLockedFS(fs billy.Filesystem) *LockedFS {
	return &LockedFS{Filesystem: fs}
}

func (l *LockedFS) Create(filename string) (billy.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.Create(filename)
}

func (l *LockedFS) Open(filename string) (billy.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.Open(filename)
}

func (l *LockedFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.OpenFile(filename, flag, perm)
}

func (l *LockedFS) Stat(filename string) (os.FileInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.Stat(filename)
}

func (l *LockedFS) Lstat(filename string) (os.FileInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.Lstat(filename)
}

func (l *LockedFS) Rename(oldpath, newpath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.Rename(oldpath, newpath)
}

func (l *LockedFS) Remove(filename string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.Remove(filename)
}

func (l *LockedFS) MkdirAll(filename string, perm os.FileMode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.MkdirAll(filename, perm)
}

func (l *LockedFS) ReadDir(p string) ([]os.FileInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.ReadDir(p)
}

func (l *LockedFS) TempFile(dir, prefix string) (billy.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Filesystem.TempFile(dir, prefix)
}
