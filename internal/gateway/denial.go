package gateway

import (
	stderrors "errors"
	"strings"
)

// groupNotFoundPhrase is the not-found text some platform versions emit
// both for genuinely missing groups and for groups the caller may not see.
const groupNotFoundPhrase = "privacy group not found"

// denialPhrases is the fixed set of free-text fragments the platform family
// is known to emit when refusing a caller on membership grounds. This is a
// compatibility shim pending a structured error-code channel from the
// platform; keep it conservative. A phrase added here asserts "this text can
// only mean authorization denial". When in doubt, leave it out and let the
// case resolve as Inconclusive.
var denialPhrases = []string{
	"not a member",
	"not authorized",
	"unauthorized",
	"forbidden",
	"access denied",
	"permission denied",
	"membership check failed",
	"identity is not in the privacy group",
	// Non-members cannot see the group at all on some platform versions,
	// so "no such group" from a node that provably hosts it is a denial.
	groupNotFoundPhrase,
}

// IsGroupNotFound reports whether err is a rejection carrying the
// not-found text. For a non-member probe that text is a plain denial, but
// the same platform versions hide a group from its own creator until the
// genesis transaction commits, so confirmation polling must treat it as
// still-pending rather than final.
func IsGroupNotFound(err error) bool {
	var ge *Error
	if !stderrors.As(err, &ge) || ge.Kind != Rejected {
		return false
	}
	return strings.Contains(strings.ToLower(ge.Message), groupNotFoundPhrase)
}

// isDenialMessage reports whether msg matches the denial-phrase table.
func isDenialMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, phrase := range denialPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
