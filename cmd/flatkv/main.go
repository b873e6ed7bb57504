// Command flatkv reads and edits flat key/value documents stored as .json or .xml files.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/kjk/flatkv/config"
	"github.com/kjk/flatkv/log"
	"github.com/kjk/flatkv/store"
	"github.com/spf13/cobra"
)

var (
	// global flags
	configPath string
	verbose    bool
	immediate  bool
	threshold  int
	logDir     string

	// loaded in setup(), with flags applied
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "flatkv",
	Short: "Read and edit flat key/value documents (.json, .xml)",
	Long: `flatkv edits simple configuration-like files: a flat JSON object
or a single-level XML document under <root>.

Changes are kept in memory and written back in full when flushed.
One-shot commands (add, edit, delete) flush before exiting.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Close()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultFileName, "path of YAML config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	pf.BoolVar(&immediate, "immediate", false, "write the file after every change")
	pf.IntVar(&threshold, "threshold", -1, "flush after this many changes, 0 disables (default from config)")
	pf.StringVar(&logDir, "log-dir", "", "directory for log files (default from config)")

	rootCmd.AddCommand(
		createCmd,
		keysCmd,
		getCmd,
		addCmd,
		editCmd,
		deleteCmd,
		showCmd,
		checkCmd,
		diffCmd,
		runCmd,
		shellCmd,
		backupCmd,
	)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if immediate {
		cfg.FlushMode = store.Immediate.String()
	}
	if threshold >= 0 {
		cfg.AutoFlushThreshold = threshold
	}
	if logDir != "" {
		cfg.LogDir = logDir
	}
	if verbose {
		cfg.Verbose = true
	}
	if err = cfg.Validate(); err != nil {
		return err
	}
	log.Init(&log.Config{Dir: cfg.LogDir})
	log.Verbose = cfg.Verbose
	log.Verbosef("config:\n%s", spew.Sdump(cfg))
	return nil
}

// must be called after setup()
func storeOptions() (*store.Options, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return cfg.StoreOptions()
}

func openDoc(path string) (*store.Document, error) {
	opts, err := storeOptions()
	if err != nil {
		return nil, err
	}
	doc, err := store.Open(path, opts)
	if err != nil {
		return nil, err
	}
	if err := doc.LoadErr(); err != nil {
		log.Verbosef("opening '%s' as empty document: %s\n", path, err)
	}
	log.Event("open", "path", path, "format", doc.Format().String(), "entries", doc.Len())
	return doc, nil
}

// closeDoc flushes pending changes
func closeDoc(doc *store.Document) error {
	pending := doc.Pending()
	timeStart := time.Now()
	err := doc.Close()
	if log.IfErrf(err, "failed to write '%s': %s", doc.Path(), err) {
		return err
	}
	if pending > 0 {
		log.EventWithDuration("flush", time.Since(timeStart), "path", doc.Path(), "changes", pending, "entries", doc.Len())
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "flatkv: %s\n", err)
		os.Exit(1)
	}
}
