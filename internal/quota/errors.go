package quota

import "errors"

// ErrQuotaExceeded is returned when a reservation would push the account past
// its storage cap. The ledger is left untouched.
var ErrQuotaExceeded = errors.New("storage quota exceeded")
