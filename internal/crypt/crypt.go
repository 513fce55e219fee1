package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
)

var ErrCiphertextSize = errors.New("ciphertext is not a multiple of the AES block size")

// DeriveKey returns the AES-256 key and CBC IV that NVGT derives from a
// password: the key is SHA-256 of the password, the IV byte i is key[2i]^(4i+1).
func DeriveKey(password string) (key, iv []byte) {
	sum := sha256.Sum256([]byte(password))
	key = sum[:]
	iv = make([]byte, aes.BlockSize)
	for i := range iv {
		iv[i] = key[i*2] ^ byte(4*i+1)
	}
	return key, iv
}

func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad yields nothing when the padding byte is out of range, as NVGT does.
func unpad(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil
	}
	return data[:len(data)-n]
}

// Encrypt pads plaintext and encrypts it with AES-CBC under password.
func Encrypt(plaintext []byte, password string) ([]byte, error) {
	key, iv := DeriveKey(password)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := pad(plaintext)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, out)
	return out, nil
}

// Decrypt reverses Encrypt. A wrong password usually yields empty output
// rather than an error, since the padding check is the only integrity check.
func Decrypt(ciphertext []byte, password string) ([]byte, error) {
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrCiphertextSize
	}
	key, iv := DeriveKey(password)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return unpad(out), nil
}
