package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kjk/flatkv/log"
	"github.com/kjk/flatkv/store"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell <path>",
	Short: "Edit a document interactively",
	Long: `Edit a document interactively. Changes are written on "flush",
on "exit" and when the pending changes reach the flush threshold.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openDoc(args[0])
		if err != nil {
			return err
		}
		runShell(doc, cmd.InOrStdin(), cmd.OutOrStdout())
		return closeDoc(doc)
	},
}

const shellHelp = `Commands:
  add <key> <value>
  edit <key> <value>
  delete <key>
  read <key>
  keys
  show
  diff     show unflushed changes
  flush
  exit
`

// runShell executes commands until "exit" or end of input.
// Values can contain spaces, keys can't.
func runShell(doc *store.Document, in io.Reader, out io.Writer) {
	fmt.Fprintf(out, "%s document '%s', %d keys. Type 'help' for commands.\n", doc.Format(), doc.Path(), doc.Len())
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		op, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		key, value, _ := strings.Cut(rest, " ")
		value = strings.TrimSpace(value)

		needKey := func() bool {
			if key == "" {
				fmt.Fprintf(out, "'%s' needs a key\n", op)
				return false
			}
			return true
		}
		report := func(err error, okMsg string) {
			if err != nil {
				fmt.Fprintf(out, "Error: %s\n", err)
				return
			}
			fmt.Fprintln(out, okMsg)
		}

		switch op {
		case "add":
			if needKey() {
				report(doc.Add(key, value), "Data added successfully.")
			}
		case "edit":
			if needKey() {
				report(doc.Edit(key, value), "Data edited successfully.")
			}
		case "delete":
			if needKey() {
				report(doc.Delete(key), "Data deleted successfully.")
			}
		case "read":
			if needKey() {
				v, err := doc.Read(key)
				report(err, "Value: "+v)
			}
		case "keys":
			keys := doc.Keys()
			if len(keys) == 0 {
				fmt.Fprintln(out, "No keys available.")
			}
			for _, k := range keys {
				fmt.Fprintf(out, "Key: %s\n", k)
			}
		case "show":
			fmt.Fprintln(out, doc.Render())
		case "diff":
			diff, err := doc.Diff()
			if err != nil {
				fmt.Fprintf(out, "Error: %s\n", err)
			} else if diff == "" {
				fmt.Fprintln(out, "No changes.")
			} else {
				fmt.Fprint(out, diff)
			}
		case "flush":
			n := doc.Pending()
			err := doc.Flush()
			report(err, fmt.Sprintf("Flushed %d changes.", n))
			if err == nil && n > 0 {
				log.Event("flush", "path", doc.Path(), "changes", n, "entries", doc.Len())
			}
		case "help", "?":
			fmt.Fprint(out, shellHelp)
		case "exit", "quit":
			return
		default:
			fmt.Fprintf(out, "Unknown command '%s'. Type 'help' for commands.\n", op)
		}
	}
}
