package store

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/kjk/flatkv/backend"
	"github.com/kjk/flatkv/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingBackend wraps a real backend and fails Save() while fail is set
type failingBackend struct {
	backend.Backend
	fail  bool
	saves int
}

func (b *failingBackend) Save(path string, data []byte) error {
	if b.fail {
		return errors.New("disk on fire")
	}
	b.saves++
	return b.Backend.Save(path, data)
}

func deferredNoAuto() *Options {
	return &Options{FlushMode: Deferred}
}

func readFile(t *testing.T, path string) string {
	d, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(d)
}

func TestScenarioCreateJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	doc, err := Create(path, "JSON", deferredNoAuto())
	require.NoError(t, err)
	assert.Equal(t, "{}", readFile(t, path))
	assert.Equal(t, codec.JSON, doc.Format())

	require.NoError(t, doc.Add("name", "Alice"))
	// not written until flushed
	assert.Equal(t, "{}", readFile(t, path))
	assert.Equal(t, 1, doc.Pending())

	require.NoError(t, doc.Flush())
	assert.Equal(t, "{\n    \"name\": \"Alice\"\n}", readFile(t, path))
	assert.Equal(t, 0, doc.Pending())
}

func TestScenarioCreateXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xml")
	doc, err := Create(path, "XML", deferredNoAuto())
	require.NoError(t, err)
	assert.Equal(t, "<root></root>", readFile(t, path))

	require.NoError(t, doc.Add("name", "Alice"))
	require.NoError(t, doc.Flush())
	assert.Equal(t, "<root>\n    <name>Alice</name>\n</root>", readFile(t, path))
}

func TestCreateUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	for _, tag := range []string{"json", "YAML", ""} {
		doc, err := Create(path, tag, nil)
		assert.Nil(t, doc)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat), "tag: '%s'", tag)
	}
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file must not be created for bad format")

	_, err = Create(filepath.Join(t.TempDir(), "no", "such", "dir.json"), "JSON", nil)
	assert.True(t, errors.Is(err, ErrIO))
}

func TestScenarioDeleteThenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": "1", "b": "2"}`), 0644))
	doc, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, doc.Delete("a"))
	assert.Equal(t, []string{"b"}, doc.Keys())
}

func TestScenarioAutoFlushThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.xml")
	_, err := Create(path, "XML", nil)
	require.NoError(t, err)

	doc, err := Open(path, &Options{AutoFlushThreshold: 2})
	require.NoError(t, err)
	require.NoError(t, doc.Add("a", "1"))
	assert.Equal(t, 1, doc.Pending())
	assert.Equal(t, "<root></root>", readFile(t, path))

	require.NoError(t, doc.Add("b", "2"))
	assert.Equal(t, 0, doc.Pending())
	assert.Equal(t, "<root>\n    <a>1</a>\n    <b>2</b>\n</root>", readFile(t, path))
}

func TestDefaultThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	doc, err := Open(path, nil)
	require.NoError(t, err)
	for i := 0; i < DefaultAutoFlushThreshold-1; i++ {
		require.NoError(t, doc.Add(strings.Repeat("k", i+1), "v"))
	}
	assert.Equal(t, DefaultAutoFlushThreshold-1, doc.Pending())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, doc.Edit("k", "last"))
	assert.Equal(t, 0, doc.Pending())
	doc2, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAutoFlushThreshold-1, doc2.Len())
	v, err := doc2.Read("k")
	require.NoError(t, err)
	assert.Equal(t, "last", v)
}

func TestImmediateMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "i.json")
	doc, err := Open(path, &Options{FlushMode: Immediate})
	require.NoError(t, err)

	require.NoError(t, doc.Add("a", "1"))
	assert.Equal(t, 0, doc.Pending())
	assert.Equal(t, "{\n    \"a\": \"1\"\n}", readFile(t, path))

	require.NoError(t, doc.Edit("a", "2"))
	assert.Equal(t, "{\n    \"a\": \"2\"\n}", readFile(t, path))

	require.NoError(t, doc.Delete("a"))
	assert.Equal(t, "{}", readFile(t, path))

	// failed validation doesn't write
	fb := &failingBackend{Backend: backend.NewFile("")}
	doc, err = Open(path, &Options{FlushMode: Immediate, Backend: fb})
	require.NoError(t, err)
	assert.Error(t, doc.Edit("nope", "x"))
	assert.Equal(t, 0, fb.saves)
}

func TestFormatDetection(t *testing.T) {
	dir := t.TempDir()
	doc, err := Open(filepath.Join(dir, "a.json"), nil)
	require.NoError(t, err)
	assert.Equal(t, codec.JSON, doc.Format())

	doc, err = Open(filepath.Join(dir, "a.xml"), nil)
	require.NoError(t, err)
	assert.Equal(t, codec.XML, doc.Format())

	doc, err = Open(filepath.Join(dir, "a.txt"), nil)
	assert.Nil(t, doc)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	doc, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
	assert.Equal(t, 0, doc.Pending())
	assert.Empty(t, doc.Keys())
	assert.True(t, os.IsNotExist(doc.LoadErr()))
	assert.Equal(t, "{}", doc.Render())

	// nothing pending: no file gets created
	require.NoError(t, doc.Flush())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAddEditDeleteInvariants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inv.json")
	doc, err := Open(path, deferredNoAuto())
	require.NoError(t, err)

	require.NoError(t, doc.Add("k", "v1"))
	v, err := doc.Read("k")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	err = doc.Add("k", "v2")
	assert.True(t, errors.Is(err, ErrDuplicateKey))
	assert.Contains(t, err.Error(), "'k'")
	v, _ = doc.Read("k")
	assert.Equal(t, "v1", v)
	assert.Equal(t, 1, doc.Pending())

	err = doc.Edit("missing", "x")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	assert.Equal(t, []string{"k"}, doc.Keys())
	assert.Equal(t, 1, doc.Pending())

	err = doc.Delete("missing")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	assert.Equal(t, 1, doc.Pending())

	require.NoError(t, doc.Edit("k", "v3"))
	v, _ = doc.Read("k")
	assert.Equal(t, "v3", v)

	require.NoError(t, doc.Delete("k"))
	_, err = doc.Read("k")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	assert.Equal(t, 3, doc.Pending())
	assert.False(t, doc.Has("k"))

	// keys are compared exactly
	require.NoError(t, doc.Add("Key", "1"))
	require.NoError(t, doc.Add("key", "2"))
	require.NoError(t, doc.Add("key ", "3"))
	assert.Equal(t, 3, doc.Len())
}

func TestFlushIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.xml")
	fb := &failingBackend{Backend: backend.NewFile("")}
	doc, err := Open(path, &Options{Backend: fb})
	require.NoError(t, err)
	require.NoError(t, doc.Add("a", "1"))
	require.NoError(t, doc.Flush())
	assert.Equal(t, 1, fb.saves)
	require.NoError(t, doc.Flush())
	assert.Equal(t, 1, fb.saves)
	require.NoError(t, doc.Close())
	assert.Equal(t, 1, fb.saves)
}

func TestFlushFailureKeepsPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.json")
	fb := &failingBackend{Backend: backend.NewFile("")}
	doc, err := Open(path, &Options{Backend: fb})
	require.NoError(t, err)
	require.NoError(t, doc.Add("a", "1"))
	require.NoError(t, doc.Add("b", "2"))

	fb.fail = true
	err = doc.Flush()
	assert.True(t, errors.Is(err, ErrIO))
	assert.Equal(t, 2, doc.Pending())
	assert.Equal(t, []string{"a", "b"}, doc.Keys())

	fb.fail = false
	require.NoError(t, doc.Flush())
	assert.Equal(t, 0, doc.Pending())
	assert.Equal(t, "{\n    \"a\": \"1\",\n    \"b\": \"2\"\n}", readFile(t, path))
}

func TestAutoFlushFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.json")
	fb := &failingBackend{Backend: backend.NewFile(""), fail: true}
	doc, err := Open(path, &Options{FlushMode: Immediate, Backend: fb})
	require.NoError(t, err)

	// failed write undoes the mutation
	err = doc.Add("a", "1")
	assert.True(t, errors.Is(err, ErrIO))
	assert.False(t, doc.Has("a"))
	assert.Equal(t, 0, doc.Pending())

	// so the same call can be retried
	fb.fail = false
	require.NoError(t, doc.Add("a", "1"))
	require.NoError(t, doc.Add("b", "2"))
	assert.Equal(t, 0, doc.Pending())
	assert.Equal(t, "{\n    \"a\": \"1\",\n    \"b\": \"2\"\n}", readFile(t, path))

	fb.fail = true
	err = doc.Edit("a", "x")
	assert.True(t, errors.Is(err, ErrIO))
	v, _ := doc.Read("a")
	assert.Equal(t, "1", v)

	err = doc.Delete("a")
	assert.True(t, errors.Is(err, ErrIO))
	assert.Equal(t, []string{"a", "b"}, doc.Keys())
	assert.Equal(t, 0, doc.Pending())
}

func TestThresholdFlushFailureUndoesLastChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	fb := &failingBackend{Backend: backend.NewFile(""), fail: true}
	doc, err := Open(path, &Options{FlushMode: Deferred, AutoFlushThreshold: 2, Backend: fb})
	require.NoError(t, err)

	require.NoError(t, doc.Add("a", "1"))
	assert.Equal(t, 1, doc.Pending())

	// second change reaches the threshold, write fails
	err = doc.Add("b", "2")
	assert.True(t, errors.Is(err, ErrIO))
	assert.Equal(t, []string{"a"}, doc.Keys())
	assert.Equal(t, 1, doc.Pending())

	fb.fail = false
	require.NoError(t, doc.Add("b", "2"))
	assert.Equal(t, 0, doc.Pending())
	assert.Equal(t, "{\n    \"a\": \"1\",\n    \"b\": \"2\"\n}", readFile(t, path))
}

func TestInvalidKey(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"k.json", "k.xml"} {
		doc, err := Open(filepath.Join(dir, name), deferredNoAuto())
		require.NoError(t, err)
		for _, key := range []string{"", " ", " a", "a ", "\tb"} {
			err = doc.Add(key, "v")
			assert.True(t, errors.Is(err, ErrInvalidKey), "key: '%s'", key)
		}
		assert.Equal(t, 0, doc.Len())
		assert.Equal(t, 0, doc.Pending())

		// inner whitespace is fine
		require.NoError(t, doc.Add("two words", "v"))
		require.NoError(t, doc.Close())
		doc2, err := Open(filepath.Join(dir, name), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"two words"}, doc2.Keys())
	}
}

func TestRoundtripThroughFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"r.json", "r.xml"} {
		path := filepath.Join(dir, name)
		doc, err := Open(path, deferredNoAuto())
		require.NoError(t, err)
		require.NoError(t, doc.Add("host", "example.com"))
		require.NoError(t, doc.Add("port", "8080"))
		require.NoError(t, doc.Add("empty", ""))
		require.NoError(t, doc.Close())

		doc2, err := Open(path, nil)
		require.NoError(t, err)
		assert.NoError(t, doc2.LoadErr())
		assert.Equal(t, doc.Entries(), doc2.Entries(), name)
		assert.Equal(t, doc.Render(), readFile(t, path))
	}
}

func TestOpenURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u.json")
	URL := "file://" + path
	doc, err := Create(URL, "JSON", nil)
	require.NoError(t, err)
	_, isAFS := doc.Backend().(*backend.AFS)
	assert.True(t, isAFS)
	require.NoError(t, doc.Add("a", "1"))
	require.NoError(t, doc.Flush())

	doc2, err := Open(URL, nil)
	require.NoError(t, err)
	v, err := doc2.Read("a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	assert.Equal(t, "{\n    \"a\": \"1\"\n}", readFile(t, path))
}

func TestDiff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.json")
	doc, err := Create(path, "JSON", deferredNoAuto())
	require.NoError(t, err)
	diff, err := doc.Diff()
	require.NoError(t, err)
	assert.Equal(t, "", diff)

	require.NoError(t, doc.Add("a", "1"))
	diff, err = doc.Diff()
	require.NoError(t, err)
	assert.Contains(t, diff, "-{}")
	assert.Contains(t, diff, "+    \"a\": \"1\"")
	assert.Contains(t, diff, "(pending)")

	require.NoError(t, doc.Flush())
	diff, err = doc.Diff()
	require.NoError(t, err)
	assert.Equal(t, "", diff)
}

func TestOptions(t *testing.T) {
	m, err := ParseFlushMode("Immediate")
	require.NoError(t, err)
	assert.Equal(t, Immediate, m)
	m, err = ParseFlushMode("")
	require.NoError(t, err)
	assert.Equal(t, Deferred, m)
	_, err = ParseFlushMode("sometimes")
	assert.Error(t, err)
	assert.Equal(t, "immediate", Immediate.String())

	path := filepath.Join(t.TempDir(), "o.json")
	_, err = Open(path, &Options{AutoFlushThreshold: -1})
	assert.Error(t, err)
	_, err = Open(path, &Options{FlushMode: FlushMode(7)})
	assert.Error(t, err)

	doc, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAutoFlushThreshold, doc.Options().AutoFlushThreshold)
	_, isFile := doc.Backend().(*backend.File)
	assert.True(t, isFile)
}

func TestFlushKeepsFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	require.NoError(t, os.Chmod(path, 0644))

	doc, err := Open(path, deferredNoAuto())
	require.NoError(t, err)
	require.NoError(t, doc.Add("a", "1"))
	require.NoError(t, doc.Flush())

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), st.Mode().Perm())
}
