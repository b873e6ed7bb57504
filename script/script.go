// Package script runs batches of document operations read from a text file.
//
// Each non-empty line is a command:
//
//	<op> <type> <key> [value]
//
// op is one of add, edit, delete, read, keys, flush (keys and flush take no key),
// type is "json" or "xml" and selects the document from Runner.Paths.
// Lines starting with '#' are comments. Values can't contain spaces.
//
// For every command one result line is written to Runner.Results, e.g.:
//
//	Added key 'name' with value 'Alice' to json.
//	Failed to edit key 'nope' in xml: key not found: 'nope'.
package script

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/kjk/flatkv/store"
)

type Command struct {
	Line  int
	Op    string
	Type  string
	Key   string
	Value string
}

// ParseLine returns nil command for blank and comment lines
func ParseLine(s string) (*Command, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "#") {
		return nil, nil
	}
	parts := strings.Fields(s)
	cmd := &Command{Op: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Type = strings.ToLower(parts[1])
	}
	if len(parts) > 2 {
		cmd.Key = parts[2]
	}
	if len(parts) > 3 {
		cmd.Value = parts[3]
	}
	if len(parts) > 4 {
		return nil, fmt.Errorf("too many fields in '%s'", s)
	}
	if cmd.Type == "" {
		return nil, fmt.Errorf("missing document type in '%s'", s)
	}
	switch cmd.Op {
	case "add", "edit":
		if len(parts) < 4 {
			return nil, fmt.Errorf("'%s' needs a key and a value in '%s'", cmd.Op, s)
		}
	case "delete", "read":
		if len(parts) < 3 {
			return nil, fmt.Errorf("'%s' needs a key in '%s'", cmd.Op, s)
		}
	}
	return cmd, nil
}

type Summary struct {
	Ok     int
	Failed int
}

type Runner struct {
	// document type ("json", "xml") => path of the document
	Paths   map[string]string
	Options *store.Options
	// where result lines are written
	Results io.Writer

	docs map[string]*store.Document
}

func (r *Runner) doc(typ string) (*store.Document, error) {
	if d := r.docs[typ]; d != nil {
		return d, nil
	}
	path, ok := r.Paths[typ]
	if !ok {
		return nil, fmt.Errorf("no document for type '%s'", typ)
	}
	d, err := store.Open(path, r.Options)
	if err != nil {
		return nil, err
	}
	if r.docs == nil {
		r.docs = map[string]*store.Document{}
	}
	r.docs[typ] = d
	return d, nil
}

func (r *Runner) resultf(format string, args ...any) {
	if r.Results == nil {
		return
	}
	fmt.Fprintf(r.Results, format+"\n", args...)
}

// Exec runs a single command and writes a result line.
// Returns false if the command failed.
func (r *Runner) Exec(c *Command) bool {
	if !isKnownOp(c.Op) {
		r.resultf("Unsupported operation '%s'.", c.Op)
		return false
	}
	doc, err := r.doc(c.Type)
	if err != nil {
		r.resultf("Failed to %s: %s.", c.Op, err)
		return false
	}
	typ := c.Type
	switch c.Op {
	case "add":
		if err = doc.Add(c.Key, c.Value); err == nil {
			r.resultf("Added key '%s' with value '%s' to %s.", c.Key, c.Value, typ)
			return true
		}
		r.resultf("Failed to add key '%s' to %s: %s.", c.Key, typ, err)
	case "edit":
		if err = doc.Edit(c.Key, c.Value); err == nil {
			r.resultf("Edited key '%s' to value '%s' in %s.", c.Key, c.Value, typ)
			return true
		}
		r.resultf("Failed to edit key '%s' in %s: %s.", c.Key, typ, err)
	case "delete":
		if err = doc.Delete(c.Key); err == nil {
			r.resultf("Deleted key '%s' from %s.", c.Key, typ)
			return true
		}
		r.resultf("Failed to delete key '%s' in %s: %s.", c.Key, typ, err)
	case "read":
		var v string
		if v, err = doc.Read(c.Key); err == nil {
			r.resultf("Read key '%s' in %s: Value = '%s'.", c.Key, typ, v)
			return true
		}
		r.resultf("Failed to read key '%s' in %s: %s.", c.Key, typ, err)
	case "keys":
		r.resultf("Keys in %s: %s.", typ, strings.Join(doc.Keys(), ", "))
		return true
	case "flush":
		if err = doc.Flush(); err == nil {
			r.resultf("Flushed %s.", typ)
			return true
		}
		r.resultf("Failed to flush %s: %s.", typ, err)
	}
	return false
}

func isKnownOp(op string) bool {
	switch op {
	case "add", "edit", "delete", "read", "keys", "flush":
		return true
	}
	return false
}

// Flush writes pending changes of all documents opened by the runner
func (r *Runner) Flush() error {
	var firstErr error
	for _, typ := range slices.Sorted(maps.Keys(r.docs)) {
		if err := r.docs[typ].Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Run executes all commands from rd and flushes documents at the end.
// Malformed lines are reported in results and counted as failed.
func (r *Runner) Run(rd io.Reader) (Summary, error) {
	var sum Summary
	scanner := bufio.NewScanner(rd)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		c, err := ParseLine(scanner.Text())
		if err != nil {
			r.resultf("Line %d: %s.", lineNo, err)
			sum.Failed++
			continue
		}
		if c == nil {
			continue
		}
		c.Line = lineNo
		if r.Exec(c) {
			sum.Ok++
		} else {
			sum.Failed++
		}
	}
	if err := scanner.Err(); err != nil {
		_ = r.Flush()
		return sum, fmt.Errorf("error reading script: %w", err)
	}
	return sum, r.Flush()
}
