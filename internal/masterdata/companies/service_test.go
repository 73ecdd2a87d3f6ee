package companies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

type fakeRepo struct {
	nextID    int64
	companies map[int64]Company
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{companies: make(map[int64]Company)}
}

func (f *fakeRepo) List(_ context.Context, filters shared.ListFilters) ([]Company, int, error) {
	var out []Company
	for _, c := range f.companies {
		if filters.IsActive != nil && c.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Company, error) {
	c, ok := f.companies[id]
	if !ok {
		return Company{}, shared.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) Create(_ context.Context, company Company) (Company, error) {
	for _, existing := range f.companies {
		if existing.Code == company.Code {
			return Company{}, shared.ErrDuplicate
		}
	}
	f.nextID++
	company.ID = f.nextID
	f.companies[company.ID] = company
	return company, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, company Company) error {
	if _, ok := f.companies[id]; !ok {
		return shared.ErrNotFound
	}
	company.ID = id
	f.companies[id] = company
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.companies[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.companies, id)
	return nil
}

func TestServiceCreateValidation(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), Company{Name: "Acme Estates"})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	_, err = svc.Create(context.Background(), Company{Code: "ACME"})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	created, err := svc.Create(context.Background(), Company{Code: "ACME", Name: "Acme Estates", IsActive: true})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	_, err = svc.Create(context.Background(), Company{Code: "ACME", Name: "Duplicate"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestServiceDeactivateRetainsCompany(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), Company{Code: "ACME", Name: "Acme Estates", IsActive: true})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), created.ID))

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
}

func TestServiceGetInvalidID(t *testing.T) {
	svc := NewService(newFakeRepo())
	_, err := svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidID)
}
