package files

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the file record does not exist.
	ErrNotFound = errors.New("files: not found")
	// ErrUnsupportedType indicates the content type is not allowed.
	ErrUnsupportedType = errors.New("files: unsupported content type")
	// ErrTooLarge indicates the upload exceeds the size limit.
	ErrTooLarge = errors.New("files: file too large")
)

// MaxUploadSize caps uploads at 20 MiB.
const MaxUploadSize = 20 << 20

// File categories group uploads under a key prefix.
const (
	CategoryDocuments   = "documents"
	CategoryPhotos      = "photos"
	CategoryContracts   = "contracts"
	CategoryInspections = "inspections"
)

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryDocuments, CategoryPhotos, CategoryContracts, CategoryInspections:
		return true
	}
	return false
}

// File is the stored metadata for an uploaded object.
type File struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	PropertyID  *int64    `json:"property_id,omitempty"`
	Category    string    `json:"category"`
	Key         string    `json:"-"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
