package branches

// BranchForm represents the request body for creating/updating a branch
type BranchForm struct {
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
	Code      string `json:"code" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	IsActive  bool   `json:"is_active"`
}
