package recorder

import "errors"

// Error kinds the Recorder raises.
var (
	ErrReservedColumn = errors.New("recorder: column name is reserved")
	ErrUnknownColumn  = errors.New("recorder: column name not in header")
)
