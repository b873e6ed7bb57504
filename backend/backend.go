// Package backend reads and writes whole documents.
package backend

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/kjk/flatkv/atomicfile"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// DefaultTempPattern names temp files created by File.Save
const DefaultTempPattern = ".flatkv-*"

// Backend loads and saves full content of a document.
// Load of a missing document returns an error satisfying os.IsNotExist
type Backend interface {
	Load(path string) ([]byte, error)
	Save(path string, data []byte) error
}

var (
	_ Backend = &File{}
	_ Backend = &AFS{}
)

// File stores documents on local file system.
// Save replaces the file atomically via a temp file in the same directory.
type File struct {
	// pattern for os.CreateTemp, e.g. ".flatkv-*"
	TempPattern string
}

func NewFile(tempPattern string) *File {
	return &File{TempPattern: tempPattern}
}

func (b *File) Load(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (b *File) Save(path string, data []byte) error {
	pattern := b.TempPattern
	if pattern == "" {
		pattern = DefaultTempPattern
	}
	return atomicfile.WriteFile(path, data, pattern)
}

// AFS stores documents in any storage supported by github.com/viant/afs,
// addressed by URL e.g. file:///etc/app.json or mem://localhost/app.xml
type AFS struct {
	fs afs.Service
}

func NewAFS() *AFS {
	return &AFS{fs: afs.New()}
}

func ctx() context.Context {
	return context.Background()
}

func (b *AFS) Load(URL string) ([]byte, error) {
	exists, err := b.fs.Exists(ctx(), URL)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &os.PathError{Op: "open", Path: URL, Err: os.ErrNotExist}
	}
	return b.fs.DownloadWithURL(ctx(), URL)
}

func (b *AFS) Save(URL string, data []byte) error {
	return b.fs.Upload(ctx(), URL, file.DefaultFileOsMode, bytes.NewReader(data))
}

// HasScheme returns true if path looks like an URL e.g. mem://localhost/a.json
func HasScheme(path string) bool {
	scheme, _, ok := strings.Cut(path, "://")
	if !ok || len(scheme) < 2 {
		// "c://" is more likely a Windows drive
		return false
	}
	for i, c := range scheme {
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if i == 0 && !isLetter {
			return false
		}
		isDigit := c >= '0' && c <= '9'
		if !isLetter && !isDigit && c != '+' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

// ForPath returns AFS for URLs and File for plain paths
func ForPath(path string, tempPattern string) Backend {
	if HasScheme(path) {
		return NewAFS()
	}
	return NewFile(tempPattern)
}
