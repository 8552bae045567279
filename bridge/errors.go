package bridge

import "errors"

var (
	// ErrMissingProofKey indicates an authorize request without a proof-key
	// challenge, or with an unrecognized challenge method.
	ErrMissingProofKey = errors.New("missing proof key")

	// ErrUnknownHandshake indicates a callback or pickup for a session key
	// that is not pending, already consumed, or past its TTL.
	ErrUnknownHandshake = errors.New("unknown or expired handshake")
)
