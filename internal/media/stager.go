package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

const (
	msgNotAnImage    = "Only image files are allowed"
	msgImageTooLarge = "Image exceeds the maximum upload size"
)

var errTooLarge = errors.New("file too large")

// Stager saves uploaded image parts to a local staging directory before
// they are forwarded to a Store.
type Stager struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

func NewStager(dir string, maxBytes int64) (*Stager, error) {
	abs, err := filepath.Abs(filepath.Join(dir, "staging"))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create staging directory: %w", err)
	}
	return &Stager{dir: abs, maxBytes: maxBytes, now: time.Now}, nil
}

// MaxBytes is the largest accepted image.
func (s *Stager) MaxBytes() int64 {
	return s.maxBytes
}

// Stage writes fh to disk as "<unix millis>-<original name>". The returned
// cleanup removes the staged file and is safe to call more than once.
func (s *Stager) Stage(fh *multipart.FileHeader) (*domain.ImageFile, func(), error) {
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, nil, domain.NewValidationError(msgNotAnImage)
	}
	if fh.Size > s.maxBytes {
		return nil, nil, domain.NewValidationError(msgImageTooLarge)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open upload: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), sanitizeName(fh.Filename))
	dst := filepath.Join(s.dir, name)
	cleanup := func() { os.Remove(dst) }

	out, err := os.Create(dst)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create staged file: %w", err)
	}

	written, err := io.Copy(out, &maxBytesReader{r: src, n: s.maxBytes})
	closeErr := out.Close()
	switch {
	case errors.Is(err, errTooLarge):
		cleanup()
		return nil, nil, domain.NewValidationError(msgImageTooLarge)
	case err != nil:
		cleanup()
		return nil, nil, fmt.Errorf("unable to write staged file: %w", err)
	case closeErr != nil:
		cleanup()
		return nil, nil, fmt.Errorf("unable to close staged file: %w", closeErr)
	}

	return &domain.ImageFile{
		Path:        dst,
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        written,
	}, cleanup, nil
}

// maxBytesReader fails once more than n bytes have been read.
type maxBytesReader struct {
	r io.Reader
	n int64
}

func (m *maxBytesReader) Read(p []byte) (int, error) {
	if m.n < 0 {
		return 0, errTooLarge
	}
	if int64(len(p)) > m.n+1 {
		p = p[:m.n+1]
	}
	n, err := m.r.Read(p)
	m.n -= int64(n)
	if m.n < 0 {
		return n, errTooLarge
	}
	return n, err
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}
