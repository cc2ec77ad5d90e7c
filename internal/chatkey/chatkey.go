// Package chatkey derives the canonical partition key for an unordered pair
// of users. All message storage and room subscriptions are keyed by it so a
// conversation is addressable regardless of direction.
package chatkey

import "errors"

var (
	ErrSameUser    = errors.New("chat key requires two distinct users")
	ErrEmptyUserID = errors.New("chat key requires non-empty user ids")
)

// Derive returns the deterministic chat key for two user ids. The result is
// invariant under argument order.
func Derive(userA, userB string) (string, error) {
	if userA == "" || userB == "" {
		return "", ErrEmptyUserID
	}
	if userA == userB {
		return "", ErrSameUser
	}
	if userA < userB {
		return userA + "-" + userB, nil
	}
	return userB + "-" + userA, nil
}
