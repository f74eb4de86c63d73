package audit

import "errors"

// Sentinel errors for the audit service layer.
var (
	ErrNotFound  = errors.New("audit not found")
	ErrTooLarge  = errors.New("upload exceeds size limit")
	ErrCacheMiss = errors.New("result not cached")
	ErrBusy      = errors.New("an identical upload is already being analysed")
)
