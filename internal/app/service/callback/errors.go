package callback

import "errors"

var (
	errMalformedCallback = errors.New("malformed callback body")
	errMissingSignature  = errors.New("missing signature")
	errInvalidSignature  = errors.New("invalid signature")
)
