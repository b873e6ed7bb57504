package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kjk/flatkv/log"
	"github.com/kjk/flatkv/script"
	"github.com/spf13/cobra"
)

var (
	flgScriptJSON    string
	flgScriptXML     string
	flgScriptResults string
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run commands from a script file",
	Long: `Run commands from a script file, one per line:

  <op> <json|xml> <key> [value]

op is one of: add, edit, delete, read, keys, flush.
"json" and "xml" commands go to documents set with --json and --xml.
Result of every command is written to --results (stdout by default).
All documents are flushed at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&flgScriptJSON, "json", "", "document for json commands (default from config)")
	f.StringVar(&flgScriptXML, "xml", "", "document for xml commands (default from config)")
	f.StringVar(&flgScriptResults, "results", "", "file for results, over-written (default from config, or stdout)")
}

func firstNonEmpty(vals ...string) string {
	for _, s := range vals {
		if s != "" {
			return s
		}
	}
	return ""
}

func runScript(cmd *cobra.Command, args []string) error {
	opts, err := storeOptions()
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	var results io.Writer = cmd.OutOrStdout()
	resultsPath := firstNonEmpty(flgScriptResults, cfg.ScriptResults)
	if resultsPath != "" {
		fr, err := os.Create(resultsPath)
		if err != nil {
			return err
		}
		defer fr.Close()
		results = fr
	}

	r := &script.Runner{
		Paths: map[string]string{
			"json": firstNonEmpty(flgScriptJSON, cfg.ScriptJSON),
			"xml":  firstNonEmpty(flgScriptXML, cfg.ScriptXML),
		},
		Options: opts,
		Results: results,
	}
	sum, err := r.Run(f)
	log.Event("script", "path", args[0], "ok", sum.Ok, "failed", sum.Failed)
	if err != nil {
		return err
	}
	if resultsPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Script processed, %d ok, %d failed. Results written to '%s'.\n", sum.Ok, sum.Failed, resultsPath)
	}
	return nil
}
