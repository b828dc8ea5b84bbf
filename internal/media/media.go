package media

import (
	"context"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

// Store hosts product images. Upload returns the public URL of the stored
// image; Delete takes a URL previously returned by Upload.
type Store interface {
	Upload(ctx context.Context, file domain.ImageFile) (string, error)
	Delete(ctx context.Context, url string) error
}
