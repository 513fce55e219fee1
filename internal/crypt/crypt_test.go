package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	key, iv := DeriveKey("secret")
	sum := sha256.Sum256([]byte("secret"))
	require.Equal(t, sum[:], key)
	require.Len(t, iv, 16)
	require.Equal(t, sum[0]^1, iv[0])
	require.Equal(t, sum[2]^5, iv[1])
	require.Equal(t, sum[30]^61, iv[15])
}

func TestRoundTrip(t *testing.T) {
	for _, plain := range []string{"", "hello", "exactly16bytes!!", "a longer message spanning several blocks of data"} {
		enc, err := Encrypt([]byte(plain), "pw")
		require.NoError(t, err)
		require.Zero(t, len(enc)%aes.BlockSize)
		require.Greater(t, len(enc), len(plain))

		dec, err := Decrypt(enc, "pw")
		require.NoError(t, err)
		require.Equal(t, plain, string(dec))
	}
}

func TestEncryptMatchesCBC(t *testing.T) {
	enc, err := Encrypt([]byte("exactly16bytes!!"), "pw")
	require.NoError(t, err)
	require.Len(t, enc, 32)

	// A full block of padding is appended to block aligned input.
	key, iv := DeriveKey("pw")
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	plain := make([]byte, len(enc))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, enc)
	require.Equal(t, "exactly16bytes!!", string(plain[:16]))
	for _, b := range plain[16:] {
		require.Equal(t, byte(16), b)
	}
}

func TestDecryptErrors(t *testing.T) {
	_, err := Decrypt([]byte("short"), "pw")
	require.ErrorIs(t, err, ErrCiphertextSize)

	dec, err := Decrypt(nil, "pw")
	require.NoError(t, err)
	require.Empty(t, dec)
}

func TestUnpad(t *testing.T) {
	require.Equal(t, []byte("ab"), unpad([]byte{'a', 'b', 2, 2}))
	require.Nil(t, unpad([]byte{'a', 0}))
	require.Nil(t, unpad([]byte{'a', 17}))
	require.Nil(t, unpad([]byte{'a', 3}))
}
