package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZip(t *testing.T, baseDir string, files map[string]string, dirs []string) string {
	t.Helper()
	zipPath := filepath.Join(baseDir, "test.zip")
	zipFile, err := os.Create(zipPath)
	require.NoError(t, err)
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	defer w.Close()

	for _, dir := range dirs {
		_, err := w.Create(dir + "/")
		require.NoError(t, err)
	}

	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}

	return zipPath
}

func createMaliciousZip(t *testing.T, baseDir string, maliciousPath string) string {
	t.Helper()
	zipPath := filepath.Join(baseDir, "malicious.zip")
	zipFile, err := os.Create(zipPath)
	require.NoError(t, err)
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	defer w.Close()

	f, err := w.Create(maliciousPath)
	require.NoError(t, err)
	_, err = f.Write([]byte("malicious content"))
	require.NoError(t, err)

	return zipPath
}

func TestUnZipBasicExtraction(t *testing.T) {
	tmpDir := t.TempDir()

	files := map[string]string{
		"test.txt":        "Hello, World!",
		"subdir/file.txt": "Nested file content",
	}
	zipPath := createTestZip(t, tmpDir, files, []string{"emptydir"})
	targetDir := filepath.Join(tmpDir, "extracted")

	require.NoError(t, UnZip(zipPath, targetDir))

	content, err := os.ReadFile(filepath.Join(targetDir, "test.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(content))

	nested, err := os.ReadFile(filepath.Join(targetDir, "subdir", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Nested file content", string(nested))

	assert.DirExists(t, filepath.Join(targetDir, "emptydir"))
}

func TestUnZipEmptyArchive(t *testing.T) {
	tmpDir := t.TempDir()
	zipPath := createTestZip(t, tmpDir, map[string]string{}, []string{})
	targetDir := filepath.Join(tmpDir, "extracted")

	assert.NoError(t, UnZip(zipPath, targetDir))
}

func TestUnZipSecurityPathTraversal(t *testing.T) {
	tests := []struct {
		name          string
		maliciousPath string
	}{
		{"relative traversal", "../../malicious.txt"},
		{"multiple traversal", "../../../etc/passwd"},
		{"mixed path", "good/../../../bad.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			zipPath := createMaliciousZip(t, tmpDir, tt.maliciousPath)
			targetDir := filepath.Join(tmpDir, "extracted")

			err := UnZip(zipPath, targetDir)
			assert.Error(t, err)

			parentDir := filepath.Dir(targetDir)
			entries, err := os.ReadDir(parentDir)
			require.NoError(t, err)
			for _, entry := range entries {
				assert.Contains(t, []string{"extracted", "malicious.zip"}, entry.Name())
			}
		})
	}
}

func TestUnZipNestedDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	files := map[string]string{
		"level1/level2/level3/deep.txt": "Deep file content",
	}
	zipPath := createTestZip(t, tmpDir, files, []string{"level1", "level1/level2", "level1/level2/level3"})
	targetDir := filepath.Join(tmpDir, "extracted")

	require.NoError(t, UnZip(zipPath, targetDir))

	content, err := os.ReadFile(filepath.Join(targetDir, "level1", "level2", "level3", "deep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Deep file content", string(content))
}

func TestUnZipOverwriteExistingFiles(t *testing.T) {
	tmpDir := t.TempDir()
	targetDir := filepath.Join(tmpDir, "extracted")
	zipPath := createTestZip(t, tmpDir, map[string]string{"test.txt": "New content"}, []string{})

	require.NoError(t, os.MkdirAll(targetDir, 0755))
	existingFile := filepath.Join(targetDir, "test.txt")
	require.NoError(t, os.WriteFile(existingFile, []byte("Old content"), 0644))

	require.NoError(t, UnZip(zipPath, targetDir))

	content, err := os.ReadFile(existingFile)
	require.NoError(t, err)
	assert.Equal(t, "New content", string(content))
}

func TestUnZipInvalidZipFile(t *testing.T) {
	tmpDir := t.TempDir()
	invalidZip := filepath.Join(tmpDir, "invalid.zip")
	require.NoError(t, os.WriteFile(invalidZip, []byte("This is not a ZIP file"), 0644))

	err := UnZip(invalidZip, filepath.Join(tmpDir, "extracted"))
	assert.Error(t, err)
}

func TestUnZipNonexistentFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := UnZip(filepath.Join(tmpDir, "nonexistent.zip"), filepath.Join(tmpDir, "extracted"))
	assert.Error(t, err)
}
