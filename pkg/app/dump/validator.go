package dump

import (
	"github.com/deploymenttheory/go-bootctl/pkg/app"
)

// Validate validates a GPT dump request
func (r *GptRequest) Validate() error {
	if r.Device == "" {
		return app.NewError(app.ErrCodeInvalidInput, "device path is required", nil)
	}
	return nil
}

// Validate validates a devinfo dump request
func (r *DevinfoRequest) Validate() error {
	if r.Path == "" {
		return app.NewError(app.ErrCodeInvalidInput, "devinfo path is required", nil)
	}
	return nil
}
