package uploads

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store persists uploaded PDFs under a base directory, one subdirectory
// per project. Stored names are the document id plus the original
// extension so collisions between same-named uploads are impossible.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("uploads: base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create base directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// IsPDF reports whether the upload looks like a PDF by extension. The
// declared Content-Type is not trusted; browsers disagree on it.
func IsPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

/*
Save writes one uploaded file to disk and returns the stored path.

The path is <base>/<projectID>/<documentID>.pdf regardless of the
original filename, which is kept only as database metadata.
*/
func (s *Store) Save(projectID, documentID uuid.UUID, file multipart.File) (string, error) {
	dir := filepath.Join(s.baseDir, projectID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("uploads: create project directory: %w", err)
	}

	path := filepath.Join(dir, documentID.String()+".pdf")
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("uploads: create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("uploads: write file: %w", err)
	}
	return path, nil
}

// ReadFileContent reads the entire content of the stored file at path.
func ReadFileContent(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Remove deletes a stored file. Missing files are not an error; the
// upload may never have finished.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("uploads: remove file: %w", err)
	}
	return nil
}
