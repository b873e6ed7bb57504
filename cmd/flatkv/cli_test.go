package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kjk/flatkv/backup"
	"github.com/kjk/flatkv/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs flatkv with args and returns its output.
// Flag variables are global so they're reset before every run.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	configPath = filepath.Join(t.TempDir(), "none.yaml")
	verbose, immediate, threshold, logDir = false, false, -1, ""
	flgColor, flgPretty = "never", false
	flgScriptJSON, flgScriptXML, flgScriptResults = "", "", ""
	flgBackupCompression, flgBackupDir = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func readFile(t *testing.T, path string) string {
	d, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(d)
}

func TestCreateAddGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	out, err := execute(t, "", "create", path, "JSON")
	require.NoError(t, err)
	assert.Contains(t, out, "Created JSON document")
	assert.Equal(t, "{}", readFile(t, path))

	_, err = execute(t, "", "add", path, "name", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"name\": \"Alice\"\n}", readFile(t, path))

	out, err = execute(t, "", "get", path, "name")
	require.NoError(t, err)
	assert.Equal(t, "Alice\n", out)

	_, err = execute(t, "", "add", path, "name", "Bob")
	assert.True(t, errors.Is(err, store.ErrDuplicateKey))

	_, err = execute(t, "", "edit", path, "name", "Bob")
	require.NoError(t, err)
	_, err = execute(t, "", "add", path, "city", "Paris")
	require.NoError(t, err)

	out, err = execute(t, "", "keys", path)
	require.NoError(t, err)
	assert.Equal(t, "name\ncity\n", out)

	_, err = execute(t, "", "delete", path, "name")
	require.NoError(t, err)
	_, err = execute(t, "", "get", path, "name")
	assert.True(t, errors.Is(err, store.ErrKeyNotFound))

	out, err = execute(t, "", "show", path)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"city\": \"Paris\"\n}\n", out)
}

func TestCreateBadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	_, err := execute(t, "", "create", path, "YAML")
	assert.True(t, errors.Is(err, store.ErrUnsupportedFormat))
	_, err = execute(t, "", "keys", filepath.Join(t.TempDir(), "a.txt"))
	assert.True(t, errors.Is(err, store.ErrUnsupportedFormat))
}

func TestCheckAndDiff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.xml")
	require.NoError(t, os.WriteFile(path, []byte("<root><a>1</a></root>"), 0644))

	out, err := execute(t, "", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "XML document with 1 keys")

	out, err = execute(t, "", "diff", path)
	require.NoError(t, err)
	assert.Contains(t, out, "+    <a>1</a>")

	bad := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(bad, []byte("name=Alice"), 0644))
	_, err = execute(t, "", "check", bad)
	assert.True(t, errors.Is(err, store.ErrUnparseable))
}

func TestRunScript(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "ops.txt")
	s := "add json k1 v1\nadd xml k2 v2\nread json k1\nedit xml nope x\n"
	require.NoError(t, os.WriteFile(scriptPath, []byte(s), 0644))
	jsonPath := filepath.Join(dir, "t.json")
	xmlPath := filepath.Join(dir, "t.xml")
	resultsPath := filepath.Join(dir, "results.log")

	out, err := execute(t, "", "run", scriptPath, "--json", jsonPath, "--xml", xmlPath, "--results", resultsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "3 ok, 1 failed")
	assert.Contains(t, readFile(t, resultsPath), "Read key 'k1' in json: Value = 'v1'.")
	assert.Equal(t, "{\n    \"k1\": \"v1\"\n}", readFile(t, jsonPath))
	assert.Equal(t, "<root>\n    <k2>v2</k2>\n</root>", readFile(t, xmlPath))
}

func TestShell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	in := "add greeting hello world\nread greeting\ndiff\nbogus\nkeys\nexit\n"
	out, err := execute(t, in, "shell", path, "--threshold", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Data added successfully.")
	assert.Contains(t, out, "Value: hello world")
	assert.Contains(t, out, "+    \"greeting\": \"hello world\"")
	assert.Contains(t, out, "Unknown command 'bogus'")
	assert.Contains(t, out, "Key: greeting")
	// flushed on exit
	assert.Equal(t, "{\n    \"greeting\": \"hello world\"\n}", readFile(t, path))
}

func TestBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.xml")
	require.NoError(t, os.WriteFile(path, []byte("<root>\n    <a>1</a>\n</root>"), 0644))
	snapDir := filepath.Join(dir, "snaps")

	out, err := execute(t, "", "backup", path, "--dir", snapDir, "--compression", "gzip")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved snapshot")

	entries, err := os.ReadDir(snapDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	name := entries[0].Name()
	assert.True(t, strings.HasSuffix(name, ".xml.gz"), name)
	d, err := backup.ReadSnapshot(filepath.Join(snapDir, name))
	require.NoError(t, err)
	assert.Equal(t, "<root>\n    <a>1</a>\n</root>", string(d))

	_, err = execute(t, "", "backup", filepath.Join(dir, "missing.json"), "--dir", snapDir)
	assert.Error(t, err)
}
