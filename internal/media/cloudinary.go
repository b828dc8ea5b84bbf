package media

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

type cloudinaryAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryStore uploads images into one Cloudinary folder.
type CloudinaryStore struct {
	api    cloudinaryAPI
	folder string
	logger *zap.Logger
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string, logger *zap.Logger) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &CloudinaryStore{api: &cld.Upload, folder: folder, logger: logger}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, file domain.ImageFile) (string, error) {
	res, err := s.api.Upload(ctx, file.Path, uploader.UploadParams{
		Folder:       s.folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", &domain.UpstreamError{Op: "upload", Err: err}
	}
	if res.Error.Message != "" {
		return "", &domain.UpstreamError{Op: "upload", Err: errors.New(res.Error.Message)}
	}

	s.logger.Info("Image uploaded",
		zap.String("public_id", res.PublicID),
		zap.Int("bytes", res.Bytes))
	return res.SecureURL, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, url string) error {
	publicID, ok := PublicIDFromURL(url)
	if !ok {
		s.logger.Warn("Image URL has no Cloudinary public id", zap.String("url", url))
		return nil
	}

	res, err := s.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return &domain.UpstreamError{Op: "destroy", Err: err}
	}
	if res.Error.Message != "" {
		return &domain.UpstreamError{Op: "destroy", Err: errors.New(res.Error.Message)}
	}
	return nil
}

var publicIDPattern = regexp.MustCompile(`/upload/(?:v\d+/)?(.+?)(?:\.[^./]+)?$`)

// PublicIDFromURL extracts the public id from a Cloudinary delivery URL
// such as https://res.cloudinary.com/demo/image/upload/v12/folder/pen.png,
// which yields "folder/pen".
func PublicIDFromURL(url string) (string, bool) {
	m := publicIDPattern.FindStringSubmatch(url)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}
