package properties

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

type fakeRepo struct {
	nextID     int64
	properties map[int64]Property
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{properties: make(map[int64]Property)}
}

func (f *fakeRepo) List(context.Context, shared.ListFilters) ([]Property, int, error) {
	out := make([]Property, 0, len(f.properties))
	for _, p := range f.properties {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Property, error) {
	p, ok := f.properties[id]
	if !ok {
		return Property{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) Create(_ context.Context, p Property) (Property, error) {
	f.nextID++
	p.ID = f.nextID
	f.properties[p.ID] = p
	return p, nil
}

func (f *fakeRepo) Update(_ context.Context, p Property) error {
	if _, ok := f.properties[p.ID]; !ok {
		return ErrNotFound
	}
	f.properties[p.ID] = p
	return nil
}

func (f *fakeRepo) SetStatus(_ context.Context, id int64, status string) error {
	p, ok := f.properties[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	f.properties[id] = p
	return nil
}

func validProperty() Property {
	return Property{CompanyID: 1, BranchID: 1, OwnerID: 1, Name: "Sunset Villas", Address: "1 Sunset Rd", UnitCount: 12}
}

func TestCreatePropertyDefaultsStatus(t *testing.T) {
	svc := NewService(newFakeRepo())

	created, err := svc.Create(context.Background(), validProperty())
	require.NoError(t, err)
	require.Equal(t, StatusAvailable, created.Status)
}

func TestCreatePropertyValidation(t *testing.T) {
	svc := NewService(newFakeRepo())

	p := validProperty()
	p.OwnerID = 0
	_, err := svc.Create(context.Background(), p)
	require.Error(t, err)

	p = validProperty()
	p.UnitCount = 0
	_, err = svc.Create(context.Background(), p)
	require.Error(t, err)

	p = validProperty()
	p.Status = "bulldozed"
	_, err = svc.Create(context.Background(), p)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSetStatusTransitions(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), validProperty())
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(context.Background(), created.ID, StatusOccupied))
	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOccupied, got.Status)

	require.ErrorIs(t, svc.SetStatus(context.Background(), created.ID, "demolished"), ErrInvalidStatus)
	require.ErrorIs(t, svc.SetStatus(context.Background(), 999, StatusInactive), ErrNotFound)
}

func TestListRejectsUnknownStatusFilter(t *testing.T) {
	svc := NewService(newFakeRepo())
	_, _, err := svc.List(context.Background(), shared.ListFilters{Status: "bogus"})
	require.ErrorIs(t, err, ErrInvalidStatus)
}
