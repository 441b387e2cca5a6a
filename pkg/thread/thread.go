// Package thread derives canonical conversation identifiers. There is no
// stored thread entity: a thread is the set of messages sharing the key
// produced here, so the key must come out identical no matter which
// participant sends first.
package thread

import (
	"errors"
	"strings"
)

const prefix = "thread_"

var (
	ErrEmptyIdentity    = errors.New("empty participant identity")
	ErrSameIdentity     = errors.New("participants are the same identity")
	ErrReservedIdentity = errors.New(`identity contains reserved character "_"`)
)

// Key returns the canonical thread key for the unordered pair {a, b}:
// "thread_" + min + "_" + max under lexicographic order. It is pure and
// idempotent; Key(a, b) == Key(b, a) for all pairs. The underscore is the
// key separator and is therefore reserved: identities containing one are
// rejected, otherwise "1_2" with "3" and "1" with "2_3" would collide on
// the same key and membership checks on the key would be meaningless.
func Key(a, b string) (string, error) {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return "", ErrEmptyIdentity
	}
	if strings.Contains(a, "_") || strings.Contains(b, "_") {
		return "", ErrReservedIdentity
	}
	if a == b {
		return "", ErrSameIdentity
	}
	if a > b {
		a, b = b, a
	}
	return prefix + a + "_" + b, nil
}

// Participants splits a thread key back into its two identities. ok is
// false when the key is not in canonical form. Splitting on the first
// underscore is unambiguous because Key never embeds one in an identity.
func Participants(key string) (a, b string, ok bool) {
	rest, found := strings.CutPrefix(key, prefix)
	if !found {
		return "", "", false
	}
	i := strings.Index(rest, "_")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// IsParticipant reports whether user is one of the two identities encoded
// in key. A user containing the reserved separator can never be a valid
// participant and is always refused, even when the raw string happens to
// line up with a prefix or suffix of someone else's key.
func IsParticipant(key, user string) bool {
	rest, found := strings.CutPrefix(key, prefix)
	if !found || user == "" || strings.Contains(user, "_") {
		return false
	}
	if other, found := strings.CutPrefix(rest, user+"_"); found && other != "" {
		return true
	}
	if other, found := strings.CutSuffix(rest, "_"+user); found && other != "" {
		return true
	}
	return false
}

// Other returns the participant in key that is not user. ok is false when
// user is not a participant.
func Other(key, user string) (string, bool) {
	rest, found := strings.CutPrefix(key, prefix)
	if !found || user == "" || strings.Contains(user, "_") {
		return "", false
	}
	if other, found := strings.CutPrefix(rest, user+"_"); found && other != "" {
		return other, true
	}
	if other, found := strings.CutSuffix(rest, "_"+user); found && other != "" {
		return other, true
	}
	return "", false
}
