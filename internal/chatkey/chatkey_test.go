package chatkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveOrderIndependent(t *testing.T) {
	ab, err := Derive("alice", "bob")
	require.NoError(t, err)
	ba, err := Derive("bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	assert.Equal(t, "alice-bob", ab)
}

func TestDeriveRejectsSameUser(t *testing.T) {
	_, err := Derive("alice", "alice")
	assert.ErrorIs(t, err, ErrSameUser)
}

func TestDeriveRejectsEmptyID(t *testing.T) {
	_, err := Derive("", "bob")
	assert.ErrorIs(t, err, ErrEmptyUserID)

	_, err = Derive("alice", "")
	assert.ErrorIs(t, err, ErrEmptyUserID)
}
