package companies

import (
	"fmt"
	"strings"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

func (s *Service) validate(c Company) error {
	if strings.TrimSpace(c.Code) == "" {
		return fmt.Errorf("%w: company code", shared.ErrRequiredField)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: company name", shared.ErrRequiredField)
	}
	return nil
}
