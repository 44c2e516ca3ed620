// Package aferofs adapts the Data Lake filesystem to the afero.Fs
// interface so it can back code written against afero.
//
// The remote store is append-only: random-access writes, renames, and
// permission changes are rejected with syscall.EPERM. Reads, sequential
// writes, stat, and directory listing map directly onto the facade.
package aferofs

import (
	"context"
	"os"
	"path"
	"syscall"
	"time"

	"github.com/spf13/afero"

	adl "github.com/datalake-go/adlfs/pkg/fs"
	"github.com/datalake-go/adlfs/pkg/protocol"
)

// Fs implements afero.Fs over a Data Lake filesystem facade.
type Fs struct {
	adl *adl.Fs
	ctx context.Context
}

// New wraps facade. ctx bounds every operation issued through the adapter.
func New(ctx context.Context, facade *adl.Fs) *Fs {
	return &Fs{adl: facade, ctx: ctx}
}

// Name identifies the filesystem implementation.
func (a *Fs) Name() string { return "adlfs" }

// Open opens name for reading.
func (a *Fs) Open(name string) (afero.File, error) {
	h, err := a.adl.Open(a.ctx, name, "rb")
	if err != nil {
		return nil, err
	}
	return &file{File: h, fs: a}, nil
}

// Create opens name for writing through the append/flush protocol.
func (a *Fs) Create(name string) (afero.File, error) {
	h, err := a.adl.Open(a.ctx, name, "wb")
	if err != nil {
		return nil, err
	}
	return &file{File: h, fs: a}, nil
}

// OpenFile maps read-only flags to a read handle and write/create flags
// to a write handle. Flag combinations the append-only store cannot honor
// are rejected.
func (a *Fs) OpenFile(name string, flag int, _ os.FileMode) (afero.File, error) {
	switch {
	case flag == os.O_RDONLY:
		return a.Open(name)
	case flag&os.O_RDWR != 0:
		return nil, syscall.EPERM
	case flag&os.O_WRONLY != 0:
		return a.Create(name)
	}
	return nil, syscall.EPERM
}

// Stat returns the file info for name.
func (a *Fs) Stat(name string) (os.FileInfo, error) {
	entry, err := a.adl.Info(a.ctx, name)
	if err != nil {
		return nil, err
	}
	return entryInfo{entry}, nil
}

// Mkdir is unsupported; directories materialize through file paths.
func (a *Fs) Mkdir(string, os.FileMode) error { return syscall.EPERM }

// MkdirAll is unsupported.
func (a *Fs) MkdirAll(string, os.FileMode) error { return syscall.EPERM }

// Remove is unsupported.
func (a *Fs) Remove(string) error { return syscall.EPERM }

// RemoveAll is unsupported.
func (a *Fs) RemoveAll(string) error { return syscall.EPERM }

// Rename is unsupported.
func (a *Fs) Rename(string, string) error { return syscall.EPERM }

// Chmod is unsupported.
func (a *Fs) Chmod(string, os.FileMode) error { return syscall.EPERM }

// Chown is unsupported.
func (a *Fs) Chown(string, int, int) error { return syscall.EPERM }

// Chtimes is unsupported.
func (a *Fs) Chtimes(string, time.Time, time.Time) error { return syscall.EPERM }

// file extends the buffered remote handle with the afero.File surface.
type file struct {
	*adl.File
	fs *Fs
}

func (f *file) Stat() (os.FileInfo, error) {
	return f.fs.Stat(f.File.Name())
}

func (f *file) Readdir(count int) ([]os.FileInfo, error) {
	entries, err := f.fs.adl.List(f.fs.ctx, f.File.Name(), false)
	if err != nil {
		return nil, err
	}
	if count > 0 && count < len(entries) {
		entries = entries[:count]
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, entryInfo{entry})
	}
	return infos, nil
}

func (f *file) Readdirnames(n int) ([]string, error) {
	infos, err := f.Readdir(n)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	return names, nil
}

func (f *file) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

// WriteAt is unsupported; flushed bytes are never rewritten.
func (f *file) WriteAt([]byte, int64) (int, error) { return 0, syscall.EPERM }

// Truncate is unsupported.
func (f *file) Truncate(int64) error { return syscall.EPERM }

// entryInfo adapts a canonical entry to os.FileInfo.
type entryInfo struct {
	entry protocol.Entry
}

func (e entryInfo) Name() string { return path.Base(e.entry.Name) }

func (e entryInfo) Size() int64 { return int64(e.entry.Size) }

func (e entryInfo) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir | 0o755
	}
	return 0o644
}

func (e entryInfo) ModTime() time.Time { return time.Time{} }

func (e entryInfo) IsDir() bool { return e.entry.Kind == protocol.KindDirectory }

func (e entryInfo) Sys() any { return nil }
