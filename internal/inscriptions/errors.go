package inscriptions

import "errors"

// ErrInvalidSatpoint is returned by ParseSatpoint when the input does
// not have the txid:vout:offset shape.
var ErrInvalidSatpoint = errors.New("inscriptions: invalid satpoint")
