package main

import (
	"fmt"

	"github.com/kjk/flatkv/backup"
	"github.com/kjk/flatkv/log"
	"github.com/spf13/cobra"
)

var (
	flgBackupCompression string
	flgBackupDir         string
)

var backupCmd = &cobra.Command{
	Use:   "backup <path>",
	Short: "Save a compressed snapshot of a document",
	Long: `Save a compressed snapshot of a document to a local directory or,
if backup.minio is set in config, to an S3-compatible bucket.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openDoc(args[0])
		if err != nil {
			return err
		}
		if err = doc.LoadErr(); err != nil {
			return fmt.Errorf("nothing to back up: %w", err)
		}
		method, err := backup.ParseMethod(firstNonEmpty(flgBackupCompression, cfg.Backup.Compression))
		if err != nil {
			return err
		}
		b := &backup.Backup{
			Method: method,
			Dest:   &backup.Dir{Dir: firstNonEmpty(flgBackupDir, cfg.Backup.Dir)},
		}
		if mc := cfg.Backup.Minio; mc != nil && flgBackupDir == "" {
			up, err := backup.NewMinioUploader(mc)
			if err != nil {
				return err
			}
			b.Dest = up
		}
		name, err := b.Snapshot(doc.Path(), []byte(doc.Render()))
		if err != nil {
			return err
		}
		log.Event("backup", "path", doc.Path(), "snapshot", name, "compression", string(method))
		fmt.Fprintf(cmd.OutOrStdout(), "Saved snapshot '%s'.\n", name)
		return nil
	},
}

func init() {
	f := backupCmd.Flags()
	f.StringVar(&flgBackupCompression, "compression", "", "none, gzip, zstd or brotli (default from config)")
	f.StringVar(&flgBackupDir, "dir", "", "local directory for snapshots (default from config)")
}
