package companies

// CompanyForm represents the request body for creating/updating a company
type CompanyForm struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Address  string `json:"address"`
	TaxID    string `json:"tax_id"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	IsActive bool   `json:"is_active"`
}
