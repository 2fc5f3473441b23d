// Package archive provides utilities for extracting archive files.
//
// BOE and EUR-Lex document bundles are sometimes delivered as ZIP archives;
// this package unpacks them with zip-slip path traversal protection.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mhanii/corolaria-sub000/common"
)

// UnZip extracts all entries of the archive at zipPath into tgtPath, which
// is created if it does not already exist. Entries whose resolved path would
// escape tgtPath are rejected rather than extracted.
func UnZip(zipPath string, tgtPath string) error {
	common.Logger.WithFields(map[string]interface{}{
		"zip":    zipPath,
		"target": tgtPath,
	}).Info("extracting archive")

	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer archive.Close()

	cleanTarget := filepath.Clean(tgtPath)

	for _, f := range archive.File {
		filePath := filepath.Join(tgtPath, f.Name)
		if !strings.HasPrefix(filePath, cleanTarget+string(os.PathSeparator)) && filePath != cleanTarget {
			return fmt.Errorf("archive entry %q escapes target directory", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(filePath, os.ModePerm); err != nil {
				return fmt.Errorf("create directory %s: %w", filePath, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
			return fmt.Errorf("create parent directory for %s: %w", filePath, err)
		}

		if err := extractEntry(f, filePath); err != nil {
			return err
		}
	}

	return nil
}

func extractEntry(f *zip.File, filePath string) error {
	dstFile, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return fmt.Errorf("create file %s: %w", filePath, err)
	}
	defer dstFile.Close()

	fileInArchive, err := f.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", f.Name, err)
	}
	defer fileInArchive.Close()

	if _, err := io.Copy(dstFile, fileInArchive); err != nil {
		return fmt.Errorf("extract %s: %w", filePath, err)
	}

	return nil
}
