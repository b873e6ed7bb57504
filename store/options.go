package store

import (
	"fmt"
	"strings"

	"github.com/kjk/flatkv/backend"
)

type FlushMode int

const (
	// Deferred writes on Flush() or when AutoFlushThreshold is reached
	Deferred FlushMode = iota
	// Immediate writes after every mutation
	Immediate
)

func (m FlushMode) String() string {
	if m == Immediate {
		return "immediate"
	}
	return "deferred"
}

// ParseFlushMode parses "deferred" or "immediate". Empty string means deferred.
func ParseFlushMode(s string) (FlushMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "deferred":
		return Deferred, nil
	case "immediate":
		return Immediate, nil
	}
	return Deferred, fmt.Errorf("invalid flush mode '%s', must be 'deferred' or 'immediate'", s)
}

// DefaultAutoFlushThreshold is the number of pending changes
// that triggers a write in deferred mode
const DefaultAutoFlushThreshold = 10

type Options struct {
	FlushMode FlushMode
	// flush once this many changes are pending, 0 disables
	// ignored in Immediate mode
	AutoFlushThreshold int

	// if nil, picked with backend.ForPath(path, TempPattern)
	Backend backend.Backend
	// temp file name pattern used by the default file backend
	TempPattern string
}

func DefaultOptions() *Options {
	return &Options{
		FlushMode:          Deferred,
		AutoFlushThreshold: DefaultAutoFlushThreshold,
	}
}

func (o *Options) Validate() error {
	if o.FlushMode != Deferred && o.FlushMode != Immediate {
		return fmt.Errorf("invalid flush mode %d", int(o.FlushMode))
	}
	if o.AutoFlushThreshold < 0 {
		return fmt.Errorf("auto flush threshold must be >= 0 (0 disables), got %d", o.AutoFlushThreshold)
	}
	return nil
}

// resolveOptions returns a copy of opts with defaults filled in
func resolveOptions(opts *Options, path string) (Options, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	res := *opts
	if res.Backend == nil {
		pattern := res.TempPattern
		if pattern == "" {
			pattern = backend.DefaultTempPattern
		}
		res.Backend = backend.ForPath(path, pattern)
	}
	return res, nil
}
