// Package commands marshals command-specific payloads around sscp.Session's
// secure exchanger. These wrappers never touch counters, keys, CRC or IVs;
// they only shape application data on the way in and out of Exchange.
package commands

import (
	"fmt"
	"time"

	"github.com/springcard/sscp-host/sscp"
)

// Command headers: type:8 || code:16, as opaque 24-bit values passed
// straight through to Session.Exchange.
const (
	typeSystem = 0x00
	typeIO     = 0x01
	typeScan   = 0x02
	typeCard   = 0x03

	codeGetInfos   = 0x0001
	codeSetBaud    = 0x0002
	codeSetBuzzer  = 0x0001
	codeSetLED     = 0x0002
	codeScanGlobal = 0x0001
	codeScanARaw   = 0x0002
	codeTransceive = 0x0001
)

// baudSelectors maps supported baud rates to the reader's one-byte
// selector encoding.
var baudSelectors = map[int]byte{
	9600:   0,
	19200:  1,
	38400:  2,
	57600:  3,
	115200: 4,
}

const guardTime = 150 * time.Millisecond

// DeviceInfo is the parsed response to GetInfos.
type DeviceInfo struct {
	FirmwareMajor byte
	FirmwareMinor byte
	SerialNumber  uint32
	Capabilities  byte
}

// SetBuzzer turns the reader's buzzer on or off.
func SetBuzzer(s *sscp.Session, on bool) error {
	data := byte(0x00)
	if on {
		data = 0x01
	}
	_, err := s.Exchange(typeIO, codeSetBuzzer, []byte{data}, 0)
	return err
}

// SetLED sets the reader's LED bitmask.
func SetLED(s *sscp.Session, mask byte) error {
	_, err := s.Exchange(typeIO, codeSetLED, []byte{mask}, 0)
	return err
}

// GetInfos retrieves the reader's firmware/serial/capability record.
func GetInfos(s *sscp.Session) (*DeviceInfo, error) {
	resp, err := s.Exchange(typeSystem, codeGetInfos, nil, 16)
	if err != nil {
		return nil, err
	}
	if len(resp) < 7 {
		return nil, &sscp.Error{Kind: sscp.KindApplication, Err: fmt.Errorf("GetInfos response too short (%d bytes)", len(resp))}
	}
	return &DeviceInfo{
		FirmwareMajor: resp[0],
		FirmwareMinor: resp[1],
		SerialNumber:  uint32(resp[2])<<24 | uint32(resp[3])<<16 | uint32(resp[4])<<8 | uint32(resp[5]),
		Capabilities:  resp[6],
	}, nil
}

// SetBaudRate tells the reader to switch its serial link to baud. The
// caller must reopen its own side of the link at the same rate afterwards.
func SetBaudRate(s *sscp.Session, baud int) error {
	sel, ok := baudSelectors[baud]
	if !ok {
		return &sscp.Error{Kind: sscp.KindInvalidUse, Err: fmt.Errorf("unsupported baud rate %d", baud)}
	}
	_, err := s.Exchange(typeSystem, codeSetBaud, []byte{sel}, 0)
	return err
}

// ScanResult is the outcome of a global NFC scan.
type ScanResult struct {
	CardPresent bool
	UID         []byte
}

// ScanGlobal runs a full technology-agnostic NFC scan, gated by the
// session's guard-time window since the reader handles it slowly.
func ScanGlobal(s *sscp.Session) (*ScanResult, error) {
	s.WaitGuardTime()
	defer s.GuardTime(guardTime)

	resp, err := s.Exchange(typeScan, codeScanGlobal, nil, 32)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return &ScanResult{CardPresent: false}, nil
	}
	return &ScanResult{CardPresent: true, UID: append([]byte(nil), resp...)}, nil
}

// ScanARaw scans for ISO14443-A cards only and returns the raw ATQA/UID/SAK
// block as reported by the reader. An empty block means no card answered
// the type-A poll.
func ScanARaw(s *sscp.Session) ([]byte, error) {
	s.WaitGuardTime()
	defer s.GuardTime(guardTime)

	resp, err := s.Exchange(typeScan, codeScanARaw, nil, 32)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, sscp.ErrCardAbsent
	}
	return resp, nil
}

// TransceiveAPDU relays apdu to whatever card is selected and maps the
// reader's first response byte to a dedicated card error kind.
func TransceiveAPDU(s *sscp.Session, apdu []byte) ([]byte, error) {
	resp, err := s.Exchange(typeCard, codeTransceive, apdu, 261)
	if err != nil {
		return nil, err
	}
	return decodeTransceiveResponse(resp)
}

// decodeTransceiveResponse splits the reader's leading status byte from the
// card's own APDU response.
func decodeTransceiveResponse(resp []byte) ([]byte, error) {
	if len(resp) == 0 {
		return nil, &sscp.Error{Kind: sscp.KindApplication, Err: fmt.Errorf("TransceiveAPDU returned an empty response")}
	}

	status, rest := resp[0], resp[1:]
	switch status {
	case 0x00:
		return rest, nil
	case 0x01:
		return nil, sscp.ErrCardMuteOrRemoved
	case 0x02:
		return nil, sscp.ErrCardCommError
	default:
		return nil, &sscp.Error{Kind: sscp.KindApplication, Code: int(status), Err: fmt.Errorf("unrecognized card status byte 0x%02X", status)}
	}
}
