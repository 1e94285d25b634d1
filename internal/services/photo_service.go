package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/campusdirectory/facility-api/pkg/apperror"
	"github.com/campusdirectory/facility-api/pkg/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PhotoKind names the resource type a photo belongs to. It prefixes every
// stored file name.
type PhotoKind string

const (
	PhotoKindFacility PhotoKind = "facility"
	PhotoKindRoom     PhotoKind = "room"
)

// PhotoUpload is one incoming file. Open may be called more than once.
type PhotoUpload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// UploadsFromForm adapts multipart file headers
func UploadsFromForm(files []*multipart.FileHeader) []PhotoUpload {
	uploads := make([]PhotoUpload, 0, len(files))
	for _, fh := range files {
		uploads = append(uploads, PhotoUpload{
			Filename: fh.Filename,
			Size:     fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return uploads
}

// PhotoTarget is the resource whose photo list is being changed
type PhotoTarget struct {
	Kind   PhotoKind
	ID     uuid.UUID
	Photos []string
	// Save persists the new photo list
	Save func(ctx context.Context, photos []string) error
}

// PhotoLimits holds the per-kind count cap and the per-file size cap
type PhotoLimits struct {
	MaxFileSize int64
	MaxPhotos   map[PhotoKind]int
}

// PhotoService attaches and detaches resource photos against a blob store.
// The count check is check-then-act: two concurrent attaches on the same
// resource can together exceed the cap.
type PhotoService struct {
	store  storage.BlobStore
	limits PhotoLimits
	logger *logrus.Logger
}

// NewPhotoService creates a new photo service
func NewPhotoService(store storage.BlobStore, limits PhotoLimits, logger *logrus.Logger) *PhotoService {
	return &PhotoService{
		store:  store,
		limits: limits,
		logger: logger,
	}
}

// PhotoName is the stored name of an uploaded file
func PhotoName(kind PhotoKind, id uuid.UUID, filename string) string {
	return fmt.Sprintf("%s_%s_%s", kind, id, filepath.Base(filename))
}

type validatedPhoto struct {
	upload      PhotoUpload
	name        string
	contentType string
}

// Attach validates the whole batch, writes every blob, then appends the
// names and saves the resource. A failed blob write removes the blobs
// already written for this batch and leaves the list untouched.
func (s *PhotoService) Attach(ctx context.Context, target PhotoTarget, files []PhotoUpload) ([]string, error) {
	if len(files) == 0 {
		return nil, apperror.Validation("Please upload a file")
	}

	limit := s.limits.MaxPhotos[target.Kind]
	if len(target.Photos)+len(files) > limit {
		return nil, apperror.New(apperror.KindTooManyPhotos,
			fmt.Sprintf("A %s can have at most %d photos", target.Kind, limit), nil).
			With("resource_id", target.ID).
			With("current", len(target.Photos)).
			With("incoming", len(files))
	}

	existing := make(map[string]bool, len(target.Photos)+len(files))
	for _, p := range target.Photos {
		existing[p] = true
	}

	batch := make([]validatedPhoto, 0, len(files))
	for _, f := range files {
		v, err := s.validate(target, f)
		if err != nil {
			return nil, err
		}
		if existing[v.name] {
			return nil, apperror.New(apperror.KindDuplicateFilename,
				fmt.Sprintf("A photo named %s already exists", filepath.Base(f.Filename)), nil).
				With("resource_id", target.ID)
		}
		existing[v.name] = true
		batch = append(batch, v)
	}

	written := make([]string, 0, len(batch))
	for _, v := range batch {
		if err := s.put(ctx, v); err != nil {
			s.rollback(ctx, written)
			return nil, apperror.New(apperror.KindUploadFailed, "Problem with file upload", err).
				With("resource_id", target.ID).
				With("photo", v.name)
		}
		written = append(written, v.name)
	}

	photos := make([]string, 0, len(target.Photos)+len(written))
	photos = append(photos, target.Photos...)
	photos = append(photos, written...)

	if err := target.Save(ctx, photos); err != nil {
		s.rollback(ctx, written)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"kind":        target.Kind,
		"resource_id": target.ID,
		"added":       len(written),
		"store":       s.store.Name(),
	}).Info("Photos attached")

	return photos, nil
}

// Detach removes name from the list and then deletes its blob. A missing
// blob, or a failed blob delete, is logged and does not fail the call.
func (s *PhotoService) Detach(ctx context.Context, target PhotoTarget, name string) ([]string, error) {
	idx := -1
	for i, p := range target.Photos {
		if p == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperror.NotFound("No photo named %s on this %s", name, target.Kind)
	}

	photos := make([]string, 0, len(target.Photos)-1)
	photos = append(photos, target.Photos[:idx]...)
	photos = append(photos, target.Photos[idx+1:]...)

	if err := target.Save(ctx, photos); err != nil {
		return nil, err
	}

	s.removeBlob(ctx, name)
	return photos, nil
}

// RemoveAll deletes blobs best effort, e.g. after the owning resource is gone
func (s *PhotoService) RemoveAll(ctx context.Context, names []string) {
	for _, name := range names {
		s.removeBlob(ctx, name)
	}
}

func (s *PhotoService) validate(target PhotoTarget, f PhotoUpload) (validatedPhoto, error) {
	base := filepath.Base(f.Filename)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return validatedPhoto{}, apperror.Validation("Please upload a file")
	}

	if f.Size > s.limits.MaxFileSize {
		return validatedPhoto{}, apperror.New(apperror.KindFileTooLarge,
			fmt.Sprintf("Please upload an image less than %d bytes", s.limits.MaxFileSize), nil).
			With("photo", base)
	}

	contentType, err := sniff(f)
	if err != nil {
		return validatedPhoto{}, apperror.New(apperror.KindUploadFailed, "Problem with file upload", err)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return validatedPhoto{}, apperror.New(apperror.KindInvalidMediaType, "Please upload an image file", nil).
			With("photo", base).
			With("content_type", contentType)
	}

	return validatedPhoto{
		upload:      f,
		name:        PhotoName(target.Kind, target.ID, base),
		contentType: contentType,
	}, nil
}

func sniff(f PhotoUpload) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	return mtype.String(), nil
}

func (s *PhotoService) put(ctx context.Context, v validatedPhoto) error {
	r, err := v.upload.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	return s.store.Put(ctx, v.name, r, v.contentType)
}

func (s *PhotoService) rollback(ctx context.Context, names []string) {
	for _, name := range names {
		if err := s.store.Delete(ctx, name); err != nil && !errors.Is(err, storage.ErrNotExist) {
			s.logger.WithError(err).WithField("photo", name).Error("Failed to remove photo during rollback")
		}
	}
}

func (s *PhotoService) removeBlob(ctx context.Context, name string) {
	err := s.store.Delete(ctx, name)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotExist):
		s.logger.WithField("photo", name).Warn("Photo blob already missing")
	default:
		s.logger.WithError(err).WithField("photo", name).Error("Failed to delete photo blob")
	}
}
