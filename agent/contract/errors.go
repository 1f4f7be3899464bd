package contract

import "errors"

var (
	ErrModelInvoke         = errors.New("model invoke failed")
	ErrValidation          = errors.New("validation failed")
	ErrUnknownModel        = errors.New("unknown model identifier")
	ErrProviderUnavailable = errors.New("model provider is not configured")
)
