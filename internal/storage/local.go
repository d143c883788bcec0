package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/maauso/img2video-api/internal/job/id"
)

// Static errors for storage operations.
var (
	// ErrOutsideVideoDir is returned when a URL is requested for a file
	// that does not live in the video directory.
	ErrOutsideVideoDir = errors.New("path is outside the video directory")
	// ErrNotRegularFile is returned by Size for directories and other
	// non-regular files.
	ErrNotRegularFile = errors.New("not a regular file")
)

const (
	defaultUploadDir = "uploads"
	defaultVideoDir  = "videos"
	maxNameLen       = 100
)

// Compile-time check that LocalStore implements Store.
var _ Store = (*LocalStore)(nil)

// LocalStore implements the Store interface using local disk.
type LocalStore struct {
	uploadDir string
	videoDir  string
}

// NewLocalStore creates a new LocalStore instance.
// Empty directories default to "uploads" and "videos" relative to the
// working directory. Both directories are created if they don't exist.
func NewLocalStore(uploadDir, videoDir string) (*LocalStore, error) {
	if uploadDir == "" {
		uploadDir = defaultUploadDir
	}
	if videoDir == "" {
		videoDir = defaultVideoDir
	}

	s := &LocalStore{
		uploadDir: filepath.Clean(uploadDir),
		videoDir:  filepath.Clean(videoDir),
	}
	if err := s.EnsureDirs(); err != nil {
		return nil, err
	}
	return s, nil
}

// UploadDir returns the scratch directory for source images.
func (s *LocalStore) UploadDir() string {
	return s.uploadDir
}

// VideoDir returns the directory holding generated videos.
func (s *LocalStore) VideoDir() string {
	return s.videoDir
}

// EnsureDirs creates both directories if they don't exist.
func (s *LocalStore) EnsureDirs() error {
	if err := os.MkdirAll(s.uploadDir, 0750); err != nil {
		return fmt.Errorf("create upload directory: %w", err)
	}
	if err := os.MkdirAll(s.videoDir, 0750); err != nil {
		return fmt.Errorf("create video directory: %w", err)
	}
	return nil
}

// AllocateInputPath returns <uploadDir>/<token>-<name>.
// The directory is recreated if it disappeared since startup.
func (s *LocalStore) AllocateInputPath(originalName string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0750); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	return filepath.Join(s.uploadDir, id.Token()+"-"+SanitizeName(originalName)), nil
}

// AllocateOutputPath returns <videoDir>/video-<token>.mp4.
func (s *LocalStore) AllocateOutputPath() (string, error) {
	if err := os.MkdirAll(s.videoDir, 0750); err != nil {
		return "", fmt.Errorf("create video directory: %w", err)
	}
	return filepath.Join(s.videoDir, "video-"+id.Token()+".mp4"), nil
}

// SaveInput writes data to a new input path. The file is renamed into
// place only after the copy finished, so a partial upload never appears
// under the final name.
func (s *LocalStore) SaveInput(ctx context.Context, originalName string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	path, err := s.AllocateInputPath(originalName)
	if err != nil {
		return "", err
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithTempDir(s.uploadDir), renameio.WithPermissions(0600))
	if err != nil {
		return "", fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pf.Cleanup() }()

	if _, err := io.Copy(pf, data); err != nil {
		return "", fmt.Errorf("write input file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("commit input file: %w", err)
	}

	return path, nil
}

// Delete removes path, ignoring files that are already gone.
func (s *LocalStore) Delete(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path is an existing regular file.
func (s *LocalStore) Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the size of the regular file at path.
func (s *LocalStore) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}
	return info.Size(), nil
}

// PublicURLFor returns <baseURL>/videos/<file name>.
func (s *LocalStore) PublicURLFor(_ context.Context, baseURL, outputPath string) (string, error) {
	name, err := s.videoName(outputPath)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(baseURL, "/") + PublicPrefix + url.PathEscape(name), nil
}

// videoName returns the file name of outputPath after checking that it
// lives directly in the video directory.
func (s *LocalStore) videoName(outputPath string) (string, error) {
	dir, err := filepath.Abs(s.videoDir)
	if err != nil {
		return "", fmt.Errorf("resolve video directory: %w", err)
	}
	target, err := filepath.Abs(outputPath)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", outputPath, err)
	}
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return "", fmt.Errorf("%w: %s", ErrOutsideVideoDir, outputPath)
	}
	return rel, nil
}

// SanitizeName reduces an uploaded file name to a safe base name made of
// letters, digits, dot, dash and underscore.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	clean := strings.TrimLeft(b.String(), ".")
	if len(clean) > maxNameLen {
		clean = clean[len(clean)-maxNameLen:]
	}
	if clean == "" {
		return "upload"
	}
	return clean
}
