package bridge

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// Recognized proof-key challenge methods per RFC 7636.
const (
	challengeMethodS256  = "S256"
	challengeMethodPlain = "plain"
)

// computeChallenge derives the S256 challenge for a code verifier:
// SHA256(verifier), base64url-encoded without padding.
func computeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// verifyChallenge checks a presented code verifier against the recorded
// challenge using constant-time comparison.
func verifyChallenge(verifier, challenge, method string) bool {
	var derived string
	switch method {
	case challengeMethodS256:
		derived = computeChallenge(verifier)
	case challengeMethodPlain:
		derived = verifier
	default:
		return false
	}
	return subtle.ConstantTimeCompare([]byte(derived), []byte(challenge)) == 1
}

// recognizedChallengeMethod reports whether the client requested a challenge
// method the bridge supports.
func recognizedChallengeMethod(method string) bool {
	return method == challengeMethodS256 || method == challengeMethodPlain
}
