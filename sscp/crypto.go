package sscp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
)

const keySize = 16

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func hmacEqual(key, data, tag []byte) bool {
	computed := hmacSHA256(key, data)
	return subtle.ConstantTimeCompare(computed, tag) == 1
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, wrapErr(KindInternal, err)
	}
	return b, nil
}

func aesCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, wrapErr(KindInternal, err)
	}
	if len(iv) != aes.BlockSize {
		return nil, newErr(KindInternal, "IV is not one block")
	}
	if len(plaintext)%aes.BlockSize != 0 {
		return nil, newErr(KindInternal, "plaintext is not a multiple of the block size")
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out, nil
}

func aesCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, wrapErr(KindInternal, err)
	}
	if len(iv) != aes.BlockSize {
		return nil, newErr(KindInternal, "IV is not one block")
	}
	if len(ciphertext)%aes.BlockSize != 0 || len(ciphertext) == 0 {
		return nil, newErr(KindFrame, "ciphertext is not a nonzero multiple of the block size")
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}

// sessionKeyLabel separates the four derived keys so one KDF call shape
// produces four independent 16-byte keys from a single (K, RndA, RndB)
// triple.
type sessionKeyLabel byte

const (
	labelCipherAB sessionKeyLabel = 0x01
	labelCipherBA sessionKeyLabel = 0x02
	labelSignAB   sessionKeyLabel = 0x03
	labelSignBA   sessionKeyLabel = 0x04
)

// DeriveSessionKeys computes the four session keys from the long-term key
// and the two authentication nonces: an HMAC-SHA-256 KDF keyed on K over a
// label byte concatenated with RndA and RndB, truncated to 16 bytes per
// key. The same inputs always derive the same four keys.
func DeriveSessionKeys(k, rndA, rndB []byte) (cipherAB, cipherBA, signAB, signBA []byte) {
	derive := func(label sessionKeyLabel) []byte {
		msg := make([]byte, 0, 1+len(rndA)+len(rndB))
		msg = append(msg, byte(label))
		msg = append(msg, rndA...)
		msg = append(msg, rndB...)
		return hmacSHA256(k, msg)[:keySize]
	}
	return derive(labelCipherAB), derive(labelCipherBA), derive(labelSignAB), derive(labelSignBA)
}
