package shared

import (
	"net/http"
	"strconv"
)

// ListFilters represents standard list page filters
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	SortBy   string
	SortDir  string
	IsActive *bool

	// Entity specific filters
	CompanyID  *int64
	BranchID   *int64
	PropertyID *int64
	OwnerID    *int64
	TenantID   *int64
	Status     string
}

// ParseListFilters extracts standard list filters from query parameters.
func ParseListFilters(r *http.Request) ListFilters {
	q := r.URL.Query()
	filters := ListFilters{
		Page:    DefaultPage,
		Limit:   DefaultLimit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort_by"),
		SortDir: q.Get("sort_dir"),
		Status:  q.Get("status"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		filters.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		if limit > MaxLimit {
			limit = MaxLimit
		}
		filters.Limit = limit
	}
	if raw := q.Get("is_active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filters.IsActive = &active
		}
	}
	filters.CompanyID = parseIDParam(q.Get("company_id"))
	filters.BranchID = parseIDParam(q.Get("branch_id"))
	filters.PropertyID = parseIDParam(q.Get("property_id"))
	filters.OwnerID = parseIDParam(q.Get("owner_id"))
	filters.TenantID = parseIDParam(q.Get("tenant_id"))
	return filters
}

func parseIDParam(raw string) *int64 {
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

// Offset computes the row offset for the current page.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}
