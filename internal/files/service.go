package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

// PresignTTL is how long download links stay valid.
const PresignTTL = 15 * time.Minute

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Service handles file business logic.
type Service struct {
	repo   Repository
	store  ObjectStore
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo Repository, store ObjectStore, logger *slog.Logger) *Service {
	return &Service{repo: repo, store: store, logger: logger}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]File, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (File, error) {
	if id <= 0 {
		return File{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// UploadInput collects the fields needed to store a file.
type UploadInput struct {
	CompanyID   int64
	PropertyID  *int64
	Category    string
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
	UploadedBy  string
}

// Upload stores the object and its metadata row.
func (s *Service) Upload(ctx context.Context, input UploadInput) (File, error) {
	if input.CompanyID <= 0 {
		return File{}, errors.New("files: company required")
	}
	if !ValidCategory(input.Category) {
		return File{}, fmt.Errorf("files: unknown category %q", input.Category)
	}
	ext, ok := allowedTypes[input.ContentType]
	if !ok {
		return File{}, ErrUnsupportedType
	}
	if input.Size <= 0 {
		return File{}, errors.New("files: empty upload")
	}
	if input.Size > MaxUploadSize {
		return File{}, ErrTooLarge
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return File{}, errors.New("files: name required")
	}
	if got := strings.ToLower(path.Ext(name)); got != "" && got != ext && !(got == ".jpeg" && ext == ".jpg") {
		return File{}, ErrUnsupportedType
	}

	key := fmt.Sprintf("%d/%s/%s%s", input.CompanyID, input.Category, uuid.NewString(), ext)
	if err := s.store.Put(ctx, key, input.Body, input.ContentType, input.Size); err != nil {
		return File{}, err
	}

	file := File{
		CompanyID:   input.CompanyID,
		PropertyID:  input.PropertyID,
		Category:    input.Category,
		Key:         key,
		Name:        name,
		ContentType: input.ContentType,
		Size:        input.Size,
		UploadedBy:  input.UploadedBy,
	}
	created, err := s.repo.Create(ctx, file)
	if err != nil {
		// Orphaned objects get cleaned up so storage does not drift from
		// the metadata table.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn("orphan cleanup failed", slog.String("key", key), slog.Any("error", delErr))
		}
		return File{}, err
	}
	return created, nil
}

// DownloadURL returns a short-lived presigned link for the file.
func (s *Service) DownloadURL(ctx context.Context, id int64) (string, error) {
	file, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.store.PresignGet(ctx, file.Key, PresignTTL)
}

// Delete removes both the object and its metadata row.
func (s *Service) Delete(ctx context.Context, id int64) error {
	file, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, file.Key); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
