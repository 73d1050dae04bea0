package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-bootctl/internal/device"
	"github.com/deploymenttheory/go-bootctl/internal/parsers/devinfo"
	"github.com/deploymenttheory/go-bootctl/internal/parsers/gpt"
	"github.com/deploymenttheory/go-bootctl/internal/services"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// ParseSlot accepts a slot index ("0", "1"), a letter ("a", "b") or a suffix ("_a", "_b")
func ParseSlot(s string) (uint32, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "a", types.SlotSuffixA:
		return 0, nil
	case "1", "b", types.SlotSuffixB:
		return 1, nil
	default:
		return 0, NewError(ErrCodeInvalidInput, fmt.Sprintf("invalid slot %q, expected a, b, 0 or 1", s), services.ErrInvalidSlot)
	}
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeDeviceAccess       = "DEVICE_ACCESS"
	ErrCodeUnrecoverableState = "UNRECOVERABLE_STATE"
	ErrCodeSessionFailed      = "SESSION_FAILED"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapError classifies err into a CommonError. Errors that already are CommonErrors are
// returned unchanged.
func WrapError(message string, err error) error {
	if err == nil {
		return nil
	}

	var ce *CommonError
	if errors.As(err, &ce) {
		return err
	}

	return NewError(ClassifyError(err), message, err)
}

// ClassifyError maps a core error to an error code
func ClassifyError(err error) string {
	switch {
	case errors.Is(err, services.ErrUnrecoverableState):
		return ErrCodeUnrecoverableState
	case errors.Is(err, services.ErrInvalidSlot),
		errors.Is(err, services.ErrReadOnlyFlag):
		return ErrCodeInvalidInput
	case errors.Is(err, gpt.ErrInvalidHeader),
		errors.Is(err, gpt.ErrInvalidEntry),
		errors.Is(err, devinfo.ErrInvalidDevinfo),
		errors.Is(err, device.ErrDeviceNotFound),
		errors.Is(err, device.ErrShortRead),
		errors.Is(err, device.ErrShortWrite),
		errors.Is(err, device.ErrSlotSuffixUnknown):
		return ErrCodeDeviceAccess
	default:
		return ErrCodeSessionFailed
	}
}
