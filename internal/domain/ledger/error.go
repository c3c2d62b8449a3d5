package ledger

import "errors"

var ErrChangeNotFound = errors.New("pending change not found")

var ErrUnknownDomain = errors.New("unknown domain")
