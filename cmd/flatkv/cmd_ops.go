package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kjk/flatkv/codec"
	"github.com/kjk/flatkv/log"
	"github.com/kjk/flatkv/store"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

var createCmd = &cobra.Command{
	Use:   "create <path> <JSON|XML>",
	Short: "Create an empty document, over-writing existing file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := storeOptions()
		if err != nil {
			return err
		}
		doc, err := store.Create(args[0], args[1], opts)
		if err != nil {
			return err
		}
		log.Event("create", "path", doc.Path(), "format", doc.Format().String())
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s document '%s'.\n", doc.Format(), doc.Path())
		return nil
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys <path>",
	Short: "List keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openDoc(args[0])
		if err != nil {
			return err
		}
		keys := doc.Keys()
		if len(keys) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No keys available.")
			return nil
		}
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <path> <key>",
	Short: "Print value of a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openDoc(args[0])
		if err != nil {
			return err
		}
		v, err := doc.Read(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

// mutateCmd builds add/edit/delete commands which open the document,
// apply one change and flush
func mutateCmd(use string, short string, nArgs int, fn func(doc *store.Document, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := openDoc(args[0])
			if err != nil {
				return err
			}
			err = fn(doc, args[1:])
			// an automatic flush may have failed after the change was applied
			// retry once more when closing
			if errClose := closeDoc(doc); err == nil {
				err = errClose
			}
			if err != nil {
				return err
			}
			log.Verbosef("%s %s: ok\n", cmd.Name(), strings.Join(args, " "))
			return nil
		},
	}
}

var addCmd = mutateCmd("add <path> <key> <value>", "Add a new key", 3, func(doc *store.Document, args []string) error {
	return doc.Add(args[0], args[1])
})

var editCmd = mutateCmd("edit <path> <key> <value>", "Change value of existing key", 3, func(doc *store.Document, args []string) error {
	return doc.Edit(args[0], args[1])
})

var deleteCmd = mutateCmd("delete <path> <key>", "Delete a key", 2, func(doc *store.Document, args []string) error {
	return doc.Delete(args[0])
})

var (
	flgColor  string
	flgPretty bool
)

var showCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Print the document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openDoc(args[0])
		if err != nil {
			return err
		}
		s, err := renderForDisplay(doc, flgColor, flgPretty)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	},
}

func init() {
	showCmd.Flags().StringVar(&flgColor, "color", "auto", "colorize JSON: auto, always or never")
	showCmd.Flags().BoolVar(&flgPretty, "pretty", false, "re-format JSON with standard indentation")
}

func isTerminal(f *os.File) bool {
	st, err := f.Stat()
	return err == nil && st.Mode()&os.ModeCharDevice != 0
}

func renderForDisplay(doc *store.Document, color string, reformat bool) (string, error) {
	s := doc.Render()
	if doc.Format() != codec.JSON {
		return s, nil
	}
	d := []byte(s)
	if reformat {
		d = pretty.Pretty(d)
	}
	useColor := false
	switch color {
	case "always":
		useColor = true
	case "never":
	case "auto":
		useColor = isTerminal(os.Stdout)
	default:
		return "", fmt.Errorf("invalid --color value '%s', must be auto, always or never", color)
	}
	if useColor {
		d = pretty.Color(d, pretty.TerminalStyle)
	}
	return strings.TrimSuffix(string(d), "\n"), nil
}

var checkCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Check that a file looks like a flat JSON or XML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		format, err := codec.FormatFromPath(path)
		if err != nil {
			return err
		}
		doc, err := openDoc(path)
		if err != nil {
			return err
		}
		d, err := doc.Backend().Load(path)
		if err != nil {
			return fmt.Errorf("%w: %w", store.ErrIO, err)
		}
		if err = codec.Validate(format, string(d)); err != nil {
			return fmt.Errorf("'%s': %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "'%s': %s document with %d keys.\n", path, format, doc.Len())
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <path>",
	Short: "Show how flatkv would re-write the file",
	Long: `Show unified diff between the file and the way flatkv writes it.
Empty output means the file is already in canonical form.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openDoc(args[0])
		if err != nil {
			return err
		}
		diff, err := doc.Diff()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), diff)
		return nil
	},
}
