package compact

import "errors"

// ErrMalformedBlock is returned by FromRaw and FromStandardized when a txid fails hex
// decoding or a required field is absent from the source block.
var ErrMalformedBlock = errors.New("compact: malformed block")

// ErrCorruptBlob is returned by Decode when the input bytes do not
// parse as a well-formed encoded CompactedBlock.
var ErrCorruptBlob = errors.New("compact: corrupt blob")
