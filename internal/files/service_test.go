package files

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/require"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

type fakeRepo struct {
	nextID int64
	files  map[int64]File
	fail   bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, files: make(map[int64]File)}
}

func (f *fakeRepo) List(_ context.Context, _ shared.ListFilters) ([]File, int, error) {
	out := make([]File, 0, len(f.files))
	for _, file := range f.files {
		out = append(out, file)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (File, error) {
	file, ok := f.files[id]
	if !ok {
		return File{}, ErrNotFound
	}
	return file, nil
}

func (f *fakeRepo) Create(_ context.Context, file File) (File, error) {
	if f.fail {
		return File{}, io.ErrUnexpectedEOF
	}
	file.ID = f.nextID
	f.nextID++
	file.CreatedAt = time.Now()
	f.files[file.ID] = file
	return file, nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.files[id]; !ok {
		return ErrNotFound
	}
	delete(f.files, id)
	return nil
}

type fakeStore struct {
	objects map[string][]byte
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, _ string, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, ok := f.objects[key]; !ok {
		return "", ErrNotFound
	}
	return "https://files.example.com/" + key + "?signed=1", nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeStore) {
	t.Helper()
	repo := newFakeRepo()
	store := newFakeStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, store, logger), repo, store
}

func validUpload() UploadInput {
	return UploadInput{
		CompanyID:   3,
		Category:    CategoryPhotos,
		Name:        "kitchen.jpg",
		ContentType: "image/jpeg",
		Size:        1024,
		Body:        bytes.NewReader(bytes.Repeat([]byte{0xff}, 1024)),
		UploadedBy:  "user-1",
	}
}

func TestUploadStoresObjectAndMetadata(t *testing.T) {
	svc, repo, store := newTestService(t)

	file, err := svc.Upload(context.Background(), validUpload())
	require.NoError(t, err)
	require.NotZero(t, file.ID)
	require.True(t, strings.HasPrefix(file.Key, "3/photos/"))
	require.True(t, strings.HasSuffix(file.Key, ".jpg"))

	require.Contains(t, store.objects, file.Key)

	stored, err := repo.Get(context.Background(), file.ID)
	require.NoError(t, err)
	require.Equal(t, "kitchen.jpg", stored.Name)
	require.Equal(t, "user-1", stored.UploadedBy)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc, _, store := newTestService(t)

	input := validUpload()
	input.Name = "script.exe"
	input.ContentType = "application/octet-stream"
	_, err := svc.Upload(context.Background(), input)
	require.ErrorIs(t, err, ErrUnsupportedType)
	require.Empty(t, store.objects)
}

func TestUploadRejectsMismatchedExtension(t *testing.T) {
	svc, _, _ := newTestService(t)

	input := validUpload()
	input.Name = "report.pdf"
	input.ContentType = "image/jpeg"
	_, err := svc.Upload(context.Background(), input)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc, _, _ := newTestService(t)

	input := validUpload()
	input.Size = MaxUploadSize + 1
	_, err := svc.Upload(context.Background(), input)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestUploadCleansUpOrphanOnMetadataFailure(t *testing.T) {
	svc, repo, store := newTestService(t)
	repo.fail = true

	_, err := svc.Upload(context.Background(), validUpload())
	require.Error(t, err)
	require.Empty(t, store.objects)
	require.Len(t, store.deleted, 1)
}

func TestDownloadURLPresignsKey(t *testing.T) {
	svc, _, _ := newTestService(t)

	file, err := svc.Upload(context.Background(), validUpload())
	require.NoError(t, err)

	url, err := svc.DownloadURL(context.Background(), file.ID)
	require.NoError(t, err)
	require.Contains(t, url, file.Key)
}

func TestDeleteRemovesObjectAndRow(t *testing.T) {
	svc, repo, store := newTestService(t)

	file, err := svc.Upload(context.Background(), validUpload())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), file.ID))
	require.NotContains(t, store.objects, file.Key)

	_, err = repo.Get(context.Background(), file.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
