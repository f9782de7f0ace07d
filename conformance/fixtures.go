package conformance

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"time"

	"github.com/springcard/sscp-host/sscp"
)

// fakePort is a minimal in-memory sscp.Port used to script reader responses
// for scenarios that exercise the framed codec directly, independent of the
// library's own internal test doubles.
type fakePort struct {
	buf       []byte
	muteReads int
}

func (f *fakePort) Write(p []byte) (int, error) { return len(p), nil }

func (f *fakePort) Read(p []byte, _ time.Duration) (int, error) {
	if f.muteReads > 0 {
		f.muteReads--
		return 0, nil
	}
	if len(f.buf) == 0 {
		return 0, nil
	}
	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

func (f *fakePort) Close() error { return nil }

// crc16CCITT is a standalone CRC-16/CCITT-FALSE implementation (poly 0x1021,
// init 0xFFFF) so this package can synthesize wire frames without reaching
// into sscp's unexported codec.
func crc16CCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// buildFrame assembles one SSCPv2 wire frame around payload.
func buildFrame(addr, proto byte, payload []byte) []byte {
	frame := make([]byte, 0, 5+len(payload)+2)
	frame = append(frame, 0x02)
	frame = append(frame, byte(len(payload)>>8), byte(len(payload)))
	frame = append(frame, addr, proto)
	frame = append(frame, payload...)
	crc := crc16CCITT(frame[1:])
	return append(frame, byte(crc>>8), byte(crc))
}

// factoryKey is the reader's default transport key, repeated here so the
// suite can derive the same session keys a self-test authentication installs
// and script reader-side secure responses against them.
var factoryKey = []byte{
	0xE7, 0x4A, 0x54, 0x0F, 0xA0, 0x7C, 0x4D, 0xB1,
	0xB4, 0x64, 0x21, 0x12, 0x6D, 0xF7, 0xAD, 0x36,
}

// readerSessionKeys returns the reader-to-host cipher and signing keys a
// self-test authentication run ends up with.
func readerSessionKeys() (cipherBA, signBA []byte) {
	v := sscp.DefaultSelfTestVectors()
	rndB := v.Round1Response[24:40]
	_, cipherBA, _, signBA = sscp.DeriveSessionKeys(factoryKey, v.RndA, rndB)
	return cipherBA, signBA
}

// buildSecureResponseFrame synthesizes the framed, encrypted, signed reply a
// reader would send for the given counter/code/data/status, using the
// self-test session keys.
func buildSecureResponseFrame(counter uint32, code uint16, data []byte, statusType, statusCode byte) []byte {
	cipherBA, signBA := readerSessionKeys()

	plain := make([]byte, 8+len(data)+2)
	plain[0] = byte(counter >> 24)
	plain[1] = byte(counter >> 16)
	plain[2] = byte(counter >> 8)
	plain[3] = byte(counter)
	plain[4] = byte(code >> 8)
	plain[5] = byte(code)
	plain[6] = byte(uint16(len(data)) >> 8)
	plain[7] = byte(uint16(len(data)))
	copy(plain[8:], data)
	plain[8+len(data)] = statusType
	plain[9+len(data)] = statusCode

	mac := hmac.New(sha256.New, signBA)
	mac.Write(plain)
	plain = mac.Sum(plain)

	if rem := len(plain) % aes.BlockSize; rem != 0 {
		plain = append(plain, 0x80)
		for i := 1; i < aes.BlockSize-rem; i++ {
			plain = append(plain, 0x00)
		}
	}

	iv := make([]byte, aes.BlockSize)
	for i := range iv {
		iv[i] = byte(0xC0 + i)
	}
	block, err := aes.NewCipher(cipherBA)
	if err != nil {
		panic(err)
	}
	ciphertext := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plain)

	return buildFrame(0x00, sscp.ProtoSecure, append(ciphertext, iv...))
}
