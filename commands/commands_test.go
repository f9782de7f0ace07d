package commands

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/springcard/sscp-host/sscp"
)

// fakePort mirrors sscp's internal test double: a single byte-stream buffer
// with an optional mute counter, since commands is exercised purely through
// sscp.Session's public surface and has no access to the unexported one.
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

// newSelfTestSession builds an authenticated session that substitutes the
// self-test vectors for RNG/IV/padding and responds from its own buffer, so
// wrapper-level framing can be checked without a real reader attached.
func newSelfTestSession(t *testing.T, port sscp.Port) *sscp.Session {
	t.Helper()
	s, err := sscp.OpenWithPort(port, 0x00,
		sscp.WithTimeouts(time.Second, time.Second),
		sscp.WithMaxRetry(0),
		sscp.WithSelfTest(sscp.DefaultSelfTestVectors()),
	)
	if err != nil {
		t.Fatalf("OpenWithPort: %v", err)
	}
	if err := s.Authenticate(); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return s
}

// factoryKey duplicates the reader's default transport key so the test can
// derive the same session keys a self-test authentication installs and
// script reader-side replies against them.
var factoryKey = []byte{
	0xE7, 0x4A, 0x54, 0x0F, 0xA0, 0x7C, 0x4D, 0xB1,
	0xB4, 0x64, 0x21, 0x12, 0x6D, 0xF7, 0xAD, 0x36,
}

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

// scriptedReply builds the framed, encrypted, signed reply a reader would
// send for the given counter/code/data/status under the self-test session
// keys, ready to load into a fakePort.
func scriptedReply(t *testing.T, counter uint32, code uint16, data []byte, statusType, statusCode byte) []byte {
	t.Helper()
	v := sscp.DefaultSelfTestVectors()
	rndB := v.Round1Response[24:40]
	_, cipherBA, _, signBA := sscp.DeriveSessionKeys(factoryKey, v.RndA, rndB)

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

	iv := bytes.Repeat([]byte{0x5A}, aes.BlockSize)
	block, err := aes.NewCipher(cipherBA)
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	ciphertext := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plain)
	payload := append(ciphertext, iv...)

	frame := make([]byte, 0, 5+len(payload)+2)
	frame = append(frame, 0x02)
	frame = append(frame, byte(len(payload)>>8), byte(len(payload)))
	frame = append(frame, 0x00, 0x21)
	frame = append(frame, payload...)
	crc := crc16CCITT(frame[1:])
	return append(frame, byte(crc>>8), byte(crc))
}

func TestGetInfos_ParsesRecord(t *testing.T) {
	record := []byte{0x02, 0x01, 0xDE, 0xAD, 0xBE, 0xEF, 0x1F}
	port := &fakePort{}
	s := newSelfTestSession(t, port)
	// authenticated counter is 1, so the reply must carry a larger one
	port.buf = scriptedReply(t, 2, codeGetInfos, record, typeSystem, 0x00)

	info, err := GetInfos(s)
	if err != nil {
		t.Fatalf("GetInfos: %v", err)
	}
	if info.FirmwareMajor != 0x02 || info.FirmwareMinor != 0x01 {
		t.Errorf("firmware = %d.%d, want 2.1", info.FirmwareMajor, info.FirmwareMinor)
	}
	if info.SerialNumber != 0xDEADBEEF {
		t.Errorf("serial = %08X, want DEADBEEF", info.SerialNumber)
	}
	if info.Capabilities != 0x1F {
		t.Errorf("capabilities = %02X, want 1F", info.Capabilities)
	}
}

func TestSetBaudRate_SelectorMapping(t *testing.T) {
	port := &fakePort{}
	s := newSelfTestSession(t, port)

	if err := SetBaudRate(s, 14400); err == nil {
		t.Fatalf("expected an error for an unsupported baud rate")
	}

	port.buf = scriptedReply(t, 2, codeSetBaud, nil, typeSystem, 0x00)
	if err := SetBaudRate(s, 115200); err != nil {
		t.Fatalf("SetBaudRate: %v", err)
	}
}

func TestTransceiveAPDU_CardRemovedOverTheWire(t *testing.T) {
	port := &fakePort{}
	s := newSelfTestSession(t, port)
	port.buf = scriptedReply(t, 2, codeTransceive, []byte{0x01}, typeCard, 0x00)

	_, err := TransceiveAPDU(s, []byte{0x00, 0xA4, 0x04, 0x00})
	if err != sscp.ErrCardMuteOrRemoved {
		t.Fatalf("expected ErrCardMuteOrRemoved, got %v", err)
	}
}

func TestSetBuzzer_RequiresTransport(t *testing.T) {
	// A self-test session's Authenticate never touches the port, but
	// Exchange still does: with nothing scripted into the fake port the
	// wrapper must surface the same mute timeout Exchange would.
	s := newSelfTestSession(t, &fakePort{})
	if err := SetBuzzer(s, true); err != sscp.ErrRecvMute {
		t.Fatalf("expected ErrRecvMute, got %v", err)
	}
}

func TestTransceiveAPDU_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status byte
		data   []byte
		want   []byte
		err    error
	}{
		{"ok with data", 0x00, []byte{0x90, 0x00}, []byte{0x90, 0x00}, nil},
		{"card mute", 0x01, nil, nil, sscp.ErrCardMuteOrRemoved},
		{"card comm error", 0x02, nil, nil, sscp.ErrCardCommError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := append([]byte{tt.status}, tt.data...)
			got, err := decodeTransceiveResponse(resp)
			if err != tt.err {
				t.Fatalf("got err %v, want %v", err, tt.err)
			}
			if err == nil && !bytes.Equal(got, tt.want) {
				t.Fatalf("got %X, want %X", got, tt.want)
			}
		})
	}
}

func TestScanARaw_NoCardAnswers(t *testing.T) {
	port := &fakePort{}
	s := newSelfTestSession(t, port)
	port.buf = scriptedReply(t, 2, codeScanARaw, nil, typeScan, 0x00)

	_, err := ScanARaw(s)
	if err != sscp.ErrCardAbsent {
		t.Fatalf("expected ErrCardAbsent, got %v", err)
	}
}

func TestScanGlobal_ReportsUID(t *testing.T) {
	uid := []byte{0x04, 0xA2, 0x24, 0x92, 0xF8, 0x66, 0x80}
	port := &fakePort{}
	s := newSelfTestSession(t, port)
	port.buf = scriptedReply(t, 2, codeScanGlobal, uid, typeScan, 0x00)

	result, err := ScanGlobal(s)
	if err != nil {
		t.Fatalf("ScanGlobal: %v", err)
	}
	if !result.CardPresent {
		t.Fatalf("expected a present card")
	}
	if !bytes.Equal(result.UID, uid) {
		t.Fatalf("UID = %X, want %X", result.UID, uid)
	}
}

func TestScan_GuardTimeThrottlesBackToBackCalls(t *testing.T) {
	port := &fakePort{}
	s := newSelfTestSession(t, port)

	port.buf = scriptedReply(t, 2, codeScanGlobal, nil, typeScan, 0x00)
	if _, err := ScanGlobal(s); err != nil {
		t.Fatalf("first ScanGlobal: %v", err)
	}

	start := time.Now()
	// the first reply echoed 2, so the session counter is now 3
	port.buf = scriptedReply(t, 4, codeScanGlobal, nil, typeScan, 0x00)
	if _, err := ScanGlobal(s); err != nil {
		t.Fatalf("second ScanGlobal: %v", err)
	}
	if waited := time.Since(start); waited < guardTime-10*time.Millisecond {
		t.Fatalf("second scan returned after %v, want >=%v", waited, guardTime)
	}
}

func TestTransceiveAPDU_RejectsEmptyResponse(t *testing.T) {
	_, err := decodeTransceiveResponse(nil)
	if err == nil {
		t.Fatalf("expected an error for an empty response")
	}
}

func TestTransceiveAPDU_RejectsUnknownStatus(t *testing.T) {
	_, err := decodeTransceiveResponse([]byte{0x7F})
	if err == nil {
		t.Fatalf("expected an error for an unrecognized status byte")
	}
}
