package change

import "errors"

var (
	ErrInvalidEntity  = errors.New("entity id is required")
	ErrInvalidAction  = errors.New("unsupported change action")
	ErrInvalidPayload = errors.New("payload must be valid JSON")
	ErrInvalidDomain  = errors.New("change belongs to another domain")
	ErrMissingPayload = errors.New("payload is required for create and update")
)

// IsValidation отличает ошибки входных данных от ошибок хранилища
func IsValidation(err error) bool {
	for _, target := range []error{ErrInvalidEntity, ErrInvalidAction, ErrInvalidPayload, ErrInvalidDomain, ErrMissingPayload} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
