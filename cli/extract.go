package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mhanii/corolaria-sub000/archive"
	"github.com/mhanii/corolaria-sub000/config"
	"github.com/mhanii/corolaria-sub000/internal/archivestore"
)

var extractCmd = &cobra.Command{
	Use:   "extract-archive",
	Short: "Unpack a ZIP bundle of BOE/EUR-Lex payloads and optionally seed the archive bucket",
	Long: `BOE daily bulletins and EUR-Lex bulk exports are sometimes delivered
as a single ZIP file. extract-archive unpacks one into a directory of
individual files. With --upload, each extracted file is then pushed to the
S3-compatible archive bucket that --archive-bucket names, keyed by its
filename relative to --dest.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("zip", "", "path to the ZIP bundle")
	extractCmd.Flags().String("dest", "", "directory to unpack into")
	extractCmd.Flags().Bool("upload", false, "upload extracted files to the configured archive bucket")
}

func runExtract(cmd *cobra.Command, args []string) error {
	zipPath, _ := cmd.Flags().GetString("zip")
	dest, _ := cmd.Flags().GetString("dest")
	if zipPath == "" || dest == "" {
		return fmt.Errorf("extract-archive requires --zip and --dest")
	}
	if err := archive.UnZip(zipPath, dest); err != nil {
		return err
	}

	upload, _ := cmd.Flags().GetBool("upload")
	if !upload {
		return nil
	}

	cfg := config.Load(viper.GetViper())
	if cfg.ArchiveBucket == "" {
		return fmt.Errorf("--upload requires --archive-bucket")
	}

	client, err := archivestore.New(context.Background(), archivestore.Config{
		EndpointURL: cfg.ArchiveEndpointURL,
		AccessKey:   cfg.ArchiveAccessKey,
		SecretKey:   cfg.ArchiveSecretKey,
		Region:      cfg.ArchiveRegion,
		Bucket:      cfg.ArchiveBucket,
	})
	if err != nil {
		return fmt.Errorf("build archive client: %w", err)
	}

	return filepath.WalkDir(dest, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		relKey, err := filepath.Rel(dest, path)
		if err != nil {
			return err
		}
		return client.UploadFile(context.Background(), path, relKey)
	})
}
