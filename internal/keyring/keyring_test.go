package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestPasswordLifecycle(t *testing.T) {
	keyring.MockInit()

	const id = "00112233445566778899aabbccddeeff"
	assert.False(t, HasPassword(id))
	_, err := GetPassword(id)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SavePassword(id, "hunter2"))
	assert.True(t, HasPassword(id))
	got, err := GetPassword(id)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	require.NoError(t, DeletePassword(id))
	assert.False(t, HasPassword(id))
	assert.NoError(t, DeletePassword(id), "deleting twice")
}
