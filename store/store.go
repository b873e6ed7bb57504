package store

import (
	"fmt"
	"strings"

	"github.com/kjk/flatkv/backend"
	"github.com/kjk/flatkv/codec"
	"github.com/kjk/flatkv/kvmap"
)

type Document struct {
	path    string
	format  codec.Format
	data    *kvmap.Map
	pending int
	opts    Options
	loadErr error
}

// Open loads a document. Format is decided by the extension (.json or .xml).
// A file that can't be read (e.g. doesn't exist yet) opens as an empty document;
// the read error is available via LoadErr().
func Open(path string, opts *Options) (*Document, error) {
	format, err := codec.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	o, err := resolveOptions(opts, path)
	if err != nil {
		return nil, err
	}
	d := &Document{
		path:   path,
		format: format,
		opts:   o,
	}
	content, err := o.Backend.Load(path)
	if err != nil {
		d.loadErr = err
		content = nil
	}
	d.data = codec.Decode(format, string(content))
	return d, nil
}

// Create writes an empty document in format "JSON" or "XML" to path,
// over-writing existing file
func Create(path string, formatTag string, opts *Options) (*Document, error) {
	format, err := codec.ParseFormat(formatTag)
	if err != nil {
		return nil, err
	}
	o, err := resolveOptions(opts, path)
	if err != nil {
		return nil, err
	}
	err = o.Backend.Save(path, []byte(codec.Empty(format)))
	if err != nil {
		return nil, fmt.Errorf("%w: create '%s': %w", ErrIO, path, err)
	}
	return &Document{
		path:   path,
		format: format,
		data:   kvmap.New(),
		opts:   o,
	}, nil
}

func (d *Document) Path() string {
	return d.path
}

func (d *Document) Format() codec.Format {
	return d.format
}

// Pending returns number of changes since the last flush
func (d *Document) Pending() int {
	return d.pending
}

func (d *Document) Options() Options {
	return d.opts
}

func (d *Document) Backend() backend.Backend {
	return d.opts.Backend
}

// LoadErr returns error from reading the file in Open(), if any
func (d *Document) LoadErr() error {
	return d.loadErr
}

func (d *Document) Len() int {
	return d.data.Len()
}

func (d *Document) Has(key string) bool {
	return d.data.Has(key)
}

// Keys returns all keys in insertion order. Never nil.
func (d *Document) Keys() []string {
	return d.data.Keys()
}

func (d *Document) Entries() []kvmap.Entry {
	return d.data.Entries()
}

func (d *Document) Read(key string) (string, error) {
	v, ok := d.data.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: '%s'", ErrKeyNotFound, key)
	}
	return v, nil
}

func (d *Document) Add(key string, value string) error {
	if key == "" || strings.TrimSpace(key) != key {
		return fmt.Errorf("%w: '%s'", ErrInvalidKey, key)
	}
	if d.data.Has(key) {
		return fmt.Errorf("%w: '%s'", ErrDuplicateKey, key)
	}
	return d.apply(func() { d.data.Set(key, value) })
}

func (d *Document) Edit(key string, value string) error {
	if !d.data.Has(key) {
		return fmt.Errorf("%w: '%s'", ErrKeyNotFound, key)
	}
	return d.apply(func() { d.data.Set(key, value) })
}

func (d *Document) Delete(key string) error {
	if !d.data.Has(key) {
		return fmt.Errorf("%w: '%s'", ErrKeyNotFound, key)
	}
	return d.apply(func() { d.data.Delete(key) })
}

// flushDue reports if the next change triggers an automatic flush
func (d *Document) flushDue() bool {
	if d.opts.FlushMode == Immediate {
		return true
	}
	n := d.opts.AutoFlushThreshold
	return n > 0 && d.pending+1 >= n
}

// apply runs a validated mutation and counts it. If the flush it triggers
// fails, the mutation is undone and the document is as before the call.
func (d *Document) apply(mutate func()) error {
	if !d.flushDue() {
		mutate()
		d.pending++
		return nil
	}
	prev := d.data.Clone()
	mutate()
	d.pending++
	if err := d.Flush(); err != nil {
		d.data = prev
		d.pending--
		return err
	}
	return nil
}

// Render returns the document as it would be written to the file
func (d *Document) Render() string {
	return codec.Encode(d.format, d.data)
}

// Flush writes the document if there are pending changes.
// On failure nothing is lost: changes stay pending and Flush can be retried.
func (d *Document) Flush() error {
	if d.pending == 0 {
		return nil
	}
	err := d.opts.Backend.Save(d.path, []byte(d.Render()))
	if err != nil {
		return fmt.Errorf("%w: write '%s': %w", ErrIO, d.path, err)
	}
	d.pending = 0
	return nil
}

// Close flushes pending changes. Document can still be used after Close.
func (d *Document) Close() error {
	return d.Flush()
}
