package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const cloudinaryFolder = "bittalk"

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryStore uploads blobs to Cloudinary; Path is the secure URL.
type CloudinaryStore struct {
	api    uploadAPI
	folder string
}

func NewCloudinaryStore(cloudinaryURL string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStore{api: &cld.Upload, folder: cloudinaryFolder}, nil
}

func (c *CloudinaryStore) Put(ctx context.Context, filename string, body io.Reader) (Object, error) {
	res, err := c.api.Upload(ctx, body, uploader.UploadParams{
		Folder:           c.folder,
		ResourceType:     "auto",
		UseFilename:      api.Bool(true),
		UniqueFilename:   api.Bool(true),
		FilenameOverride: filename,
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return Object{}, fmt.Errorf("cloudinary rejected upload: %s", res.Error.Message)
	}
	return Object{Path: res.SecureURL, Size: int64(res.Bytes)}, nil
}
