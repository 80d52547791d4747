package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesUpAscending(t *testing.T) {
	names, err := Files(Up)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	assert.Equal(t, "001_create_users.up.sql", names[0])
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
		assert.True(t, strings.HasSuffix(names[i], ".up.sql"))
	}
}

func TestFilesDownMirrorsUp(t *testing.T) {
	up, err := Files(Up)
	require.NoError(t, err)
	down, err := Files(Down)
	require.NoError(t, err)

	require.Len(t, down, len(up))
	for i := range up {
		want := strings.TrimSuffix(up[len(up)-1-i], ".up.sql") + ".down.sql"
		assert.Equal(t, want, down[i])
	}
}

func TestFilesRejectsUnknownDirection(t *testing.T) {
	_, err := Files("sideways")
	assert.Error(t, err)
}
