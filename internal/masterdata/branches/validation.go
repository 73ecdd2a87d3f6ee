package branches

import (
	"fmt"
	"strings"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

func (s *Service) validate(b Branch) error {
	if b.CompanyID <= 0 {
		return fmt.Errorf("%w: branch company", shared.ErrRequiredField)
	}
	if strings.TrimSpace(b.Code) == "" {
		return fmt.Errorf("%w: branch code", shared.ErrRequiredField)
	}
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: branch name", shared.ErrRequiredField)
	}
	return nil
}
