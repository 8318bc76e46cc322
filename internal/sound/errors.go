package sound

import "errors"

// Error kinds the sound value model can raise.
var (
	ErrShape      = errors.New("sound: invalid shape")
	ErrType       = errors.New("sound: invalid element type")
	ErrOutOfRange = errors.New("sound: out of range")
)

// Warning is a non-fatal condition reported alongside an otherwise
// successful operation; it never aborts the call that produced it.
type Warning struct {
	Kind string
	Msg  string
}

func (w Warning) String() string { return w.Kind + ": " + w.Msg }

// AliasWarningKind is the Warning.Kind Resample reports when downsampling
// discards a band above the new Nyquist frequency.
const AliasWarningKind = "AliasWarning"
