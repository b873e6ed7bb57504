package backup

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/kjk/flatkv/atomicfile"
)

// Uploader stores a snapshot under a name
type Uploader interface {
	Upload(name string, data []byte) error
}

// SnapshotName returns e.g. "settings.20250601-100000.json.zst" for "dir/settings.json"
func SnapshotName(docPath string, t time.Time, m Method) string {
	base := path.Base(filepath.ToSlash(docPath))
	ext := path.Ext(base)
	name := base[:len(base)-len(ext)]
	return name + "." + t.UTC().Format("20060102-150405") + ext + m.Ext()
}

// Dir saves snapshots as files in a local directory
type Dir struct {
	Dir string
}

func (d *Dir) Upload(name string, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return err
	}
	return atomicfile.WriteFile(filepath.Join(d.Dir, name), data, ".backup-*")
}

type Backup struct {
	Method Method
	Dest   Uploader
	// for tests, defaults to time.Now
	Now func() time.Time
}

// Snapshot compresses content of docPath and saves it in Dest.
// Returns name of the snapshot.
func (b *Backup) Snapshot(docPath string, content []byte) (string, error) {
	if b.Dest == nil {
		return "", fmt.Errorf("backup destination not set")
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	m := b.Method
	if m == "" {
		m = Zstd
	}
	d, err := Compress(content, m)
	if err != nil {
		return "", err
	}
	name := SnapshotName(docPath, now(), m)
	if err = b.Dest.Upload(name, d); err != nil {
		return "", fmt.Errorf("upload of '%s' failed with '%w'", name, err)
	}
	return name, nil
}

// ReadSnapshot reads a local snapshot file, decompressing based on extension
func ReadSnapshot(path string) ([]byte, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decompress(d, MethodFromPath(path))
}
