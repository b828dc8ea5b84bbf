package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

const (
	PublicPath  = "/uploads"
	productsDir = "products"
	// ProductsPath is where the HTTP surface serves Dir.
	ProductsPath = PublicPath + "/" + productsDir
)

// LocalStore keeps images under dir and serves them from baseURL+PublicPath.
type LocalStore struct {
	dir     string
	baseURL string
	logger  *zap.Logger
}

func NewLocalStore(dir, baseURL string, logger *zap.Logger) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, productsDir), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create upload directory: %w", err)
	}
	return &LocalStore{dir: abs, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}, nil
}

// Dir holds the stored images, served at ProductsPath.
func (s *LocalStore) Dir() string {
	return filepath.Join(s.dir, productsDir)
}

func (s *LocalStore) Upload(_ context.Context, file domain.ImageFile) (string, error) {
	name := filepath.Base(file.Path)
	if err := copyFile(file.Path, filepath.Join(s.Dir(), name)); err != nil {
		return "", &domain.UpstreamError{Op: "upload", Err: err}
	}
	return s.baseURL + path.Join(ProductsPath, name), nil
}

// Delete removes an image this store uploaded. URLs it did not issue are
// ignored.
func (s *LocalStore) Delete(_ context.Context, url string) error {
	prefix := s.baseURL + ProductsPath + "/"
	if !strings.HasPrefix(url, prefix) {
		s.logger.Warn("Image URL not served by local store", zap.String("url", url))
		return nil
	}

	name := filepath.Base(strings.TrimPrefix(url, prefix))
	err := os.Remove(filepath.Join(s.Dir(), name))
	if err != nil && !os.IsNotExist(err) {
		return &domain.UpstreamError{Op: "delete", Err: err}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open staged file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("unable to create file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("unable to write file: %w", err)
	}
	return out.Close()
}
