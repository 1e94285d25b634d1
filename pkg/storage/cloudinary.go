package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore keeps blobs as Cloudinary assets in a folder. The public id
// is the blob name without its extension, so names stay addressable.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore creates a store from a cloudinary:// URL
func NewCloudinaryStore(cloudinaryURL, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryStore{cld: cld, folder: strings.Trim(folder, "/")}, nil
}

func (s *CloudinaryStore) Name() string { return "cloudinary" }

func (s *CloudinaryStore) publicID(name string) string {
	id := strings.TrimSuffix(name, filepath.Ext(name))
	if s.folder == "" {
		return id
	}
	return path.Join(s.folder, id)
}

func (s *CloudinaryStore) Put(ctx context.Context, name string, r io.Reader, contentType string) error {
	params := uploader.UploadParams{
		PublicID:       s.publicID(name),
		UniqueFilename: api.Bool(false),
		Overwrite:      api.Bool(true),
		Transformation: "q_auto",
	}

	resp, err := s.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return fmt.Errorf("failed to upload %s to cloudinary: %w", name, err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("cloudinary rejected %s: %s", name, resp.Error.Message)
	}
	return nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, name string) error {
	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:   s.publicID(name),
		Invalidate: api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from cloudinary: %w", name, err)
	}

	switch resp.Result {
	case "ok":
		return nil
	case "not found":
		return ErrNotExist
	default:
		return fmt.Errorf("cloudinary destroy returned %q for %s", resp.Result, name)
	}
}
