package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-password", hash)

	require.True(t, VerifyPassword(hash, "s3cret-password"))
	require.False(t, VerifyPassword(hash, "wrong-password"))
	require.False(t, VerifyPassword("", "anything"))
}

func TestRandomDigitsWidth(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := RandomDigits(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9')
		}
	}
}

func TestRandomDigitsRejectsNonPositive(t *testing.T) {
	_, err := RandomDigits(0)
	require.Error(t, err)

	_, err = RandomDigits(-3)
	require.Error(t, err)
}
