package sync

import (
	"errors"
	"fmt"
)

var (
	ErrNetworkFailure     = errors.New("network failure")
	ErrConflictNotFound   = errors.New("conflict not found")
	ErrFailedItemNotFound = errors.New("failed item not found")
	ErrUnknownDomain      = errors.New("unknown domain")
	ErrDuplicateDomain    = errors.New("domain already registered")
	ErrUnknownPolicy      = errors.New("unknown conflict policy")
	ErrInvalidChoice      = errors.New("unsupported resolution choice")
)

// ItemError ошибка уровня отдельного изменения
type ItemError struct {
	ChangeID string
	Domain   string
	Result   Result
	Message  string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s change %s/%s: %s", e.Result, e.Domain, e.ChangeID, e.Message)
}
