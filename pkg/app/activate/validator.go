package activate

import (
	"github.com/deploymenttheory/go-bootctl/pkg/app"
)

// Validate validates an activation request and returns the slot index
func (r *Request) Validate() (uint32, error) {
	if r.Slot == "" {
		return 0, app.NewError(app.ErrCodeInvalidInput, "slot is required", nil)
	}
	return app.ParseSlot(r.Slot)
}
