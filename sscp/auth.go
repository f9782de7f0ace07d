package sscp

import "time"

const (
	round1ResponseLen = 72
	tagLen            = 4
	nonceLen          = 16
	hmacLen           = 32
)

// Authenticate runs the two-round mutual-authentication handshake over
// PROTO=0x20, derives the four session keys and resets the counter to 1 on
// success. In self-test mode no transport is touched: the session's
// configured vectors stand in for the drawn nonce and both reader
// responses, so the HMAC and key-derivation code paths can be validated
// bit-exactly with no serial port attached.
func (s *Session) Authenticate() error {
	if s.selfTest != nil {
		return s.authenticateSelfTest()
	}
	return s.authenticateLive()
}

func (s *Session) authenticateLive() error {
	if s.port == nil {
		return ErrPortNotOpen
	}

	rndA, err := randomBytes(nonceLen)
	if err != nil {
		return err
	}

	round1Req := make([]byte, 0, 2+nonceLen)
	round1Req = append(round1Req, 0x00, 0x00)
	round1Req = append(round1Req, rndA...)

	resp, err := ExchangeRaw(s.port, s.addr, ProtoAuthenticate, round1Req, round1ResponseLen, s.firstTimeout, s.nextTimeout)
	if err != nil {
		return err
	}

	rndB, hA, err := s.processRound1Response(resp)
	if err != nil {
		return err
	}

	round2Req := make([]byte, 0, tagLen+nonceLen+hmacLen)
	round2Req = append(round2Req, resp[tagLen:2*tagLen]...) // A
	round2Req = append(round2Req, rndB...)
	round2Req = append(round2Req, hA...)

	if _, err := ExchangeRaw(s.port, s.addr, ProtoAuthenticate, round2Req, 256, s.firstTimeout, s.nextTimeout); err != nil {
		return err
	}

	return s.installSessionKeys(rndA, rndB)
}

func (s *Session) authenticateSelfTest() error {
	v := s.selfTest
	rndA := v.RndA

	rndB, _, err := s.processRound1Response(v.Round1Response)
	if err != nil {
		return err
	}
	_ = v.Round2Response // the short ACK body is not parsed, as in live mode

	return s.installSessionKeys(rndA, rndB)
}

// processRound1Response parses the 72-byte round-1 reply, verifies hB and
// returns RndB and hA (computed over A‖RndB) for the round-2 request.
func (s *Session) processRound1Response(resp []byte) (rndB, hA []byte, err error) {
	if len(resp) != round1ResponseLen {
		return nil, nil, ErrWrongResponseFmt
	}

	b := resp[0:tagLen]
	a := resp[tagLen : 2*tagLen]
	// the reader's transform of RndA is part of the signed region but is
	// not verified against the RndA we sent
	rndAPrime := resp[2*tagLen : 2*tagLen+nonceLen]
	rndB = resp[2*tagLen+nonceLen : 2*tagLen+2*nonceLen]
	hB := resp[2*tagLen+2*nonceLen : 2*tagLen+2*nonceLen+hmacLen]

	signed := make([]byte, 0, 2*tagLen+2*nonceLen)
	signed = append(signed, b...)
	signed = append(signed, a...)
	signed = append(signed, rndAPrime...)
	signed = append(signed, rndB...)
	if !hmacEqual(s.authKey, signed, hB) {
		return nil, nil, ErrWrongSignature
	}

	hASigned := make([]byte, 0, tagLen+nonceLen)
	hASigned = append(hASigned, a...)
	hASigned = append(hASigned, rndB...)
	hA = hmacSHA256(s.authKey, hASigned)

	return rndB, hA, nil
}

func (s *Session) installSessionKeys(rndA, rndB []byte) error {
	cipherAB, cipherBA, signAB, signBA := DeriveSessionKeys(s.authKey, rndA, rndB)
	s.keyCipherAB, s.keyCipherBA, s.keySignAB, s.keySignBA = cipherAB, cipherBA, signAB, signBA

	s.counter = 1
	s.Stats.SessionCount++
	s.Stats.WhenSession = time.Now()
	return nil
}
