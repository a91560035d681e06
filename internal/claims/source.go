// Package claims reads land-rights claims from a database or a file export
// and cleans them into claimants ready for spatial association.
package claims

import (
	"context"

	"github.com/fra-atlas/fra-dss/internal/model"
)

// Source yields raw claims ordered by claim id.
type Source interface {
	Claims(ctx context.Context) ([]model.RawClaim, error)
}

// Rejecter is implemented by sources that drop rows before they can become
// RawClaims, such as file rows without a usable claim id.
type Rejecter interface {
	RejectedRecords() []*model.MalformedRecordError
}

// Rejected returns the rows src dropped during its last Claims call, or nil
// when src does not drop rows.
func Rejected(src Source) []*model.MalformedRecordError {
	if r, ok := src.(Rejecter); ok {
		return r.RejectedRecords()
	}
	return nil
}
