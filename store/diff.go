package store

import (
	"os"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns unified diff between the backing file and Render(),
// i.e. what the next Flush() would change. Empty if there is no difference.
func (d *Document) Diff() (string, error) {
	onDisk, err := d.opts.Backend.Load(d.path)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(onDisk)),
		B:        difflib.SplitLines(d.Render()),
		FromFile: d.path,
		ToFile:   d.path + " (pending)",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(ud)
}
