// Package store is a flat key/value document backed by a .json or .xml file.
//
// A Document keeps all entries in memory. Mutations (Add, Edit, Delete) only
// change memory and bump a pending-change counter. Flush writes the whole
// document back, and only if there are pending changes.
//
// When the data reaches the file is controlled by Options:
//   - Deferred (default): on explicit Flush(), or automatically once
//     the counter reaches AutoFlushThreshold (if > 0)
//   - Immediate: after every successful mutation
//
// If the flush triggered by a mutation fails, the mutation is undone and
// the error (wrapping ErrIO) is returned.
//
// # Basic Usage
//
//	doc, err := store.Open("settings.json", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Close() flushes pending changes
//	defer doc.Close()
//
//	err = doc.Add("name", "Alice")
//	v, err := doc.Read("name")
//	for _, key := range doc.Keys() {
//	    // ...
//	}
//
// Errors can be checked with errors.Is() against ErrKeyNotFound, ErrDuplicateKey,
// ErrInvalidKey, ErrUnsupportedFormat and ErrIO.
//
// # Thread Safety
//
// A Document is not safe for concurrent use. There is no file locking: opening
// the same file twice, in one or many processes, leads to lost updates.
package store
