package change

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validate проверяет изменение перед постановкой в очередь домена
func Validate(domain string, c PendingChange) error {
	if strings.TrimSpace(c.EntityID) == "" {
		return ErrInvalidEntity
	}
	if c.Domain != "" && c.Domain != domain {
		return fmt.Errorf("%w: got %q, want %q", ErrInvalidDomain, c.Domain, domain)
	}
	if !c.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, c.Action)
	}
	if len(c.Payload) == 0 {
		if c.Action != ActionDelete {
			return ErrMissingPayload
		}
		return nil
	}
	if !json.Valid(c.Payload) {
		return ErrInvalidPayload
	}
	return nil
}
