package conformance

import (
	"fmt"
	"time"

	"github.com/springcard/sscp-host/commands"
	"github.com/springcard/sscp-host/sscp"
)

// runFramingScenarios checks the framed codec's behavior at the wire level:
// a clean echo, a corrupted CRC, and the mute-vs-stopped timeout split.
func (s *Suite) runFramingScenarios() {
	start := time.Now()
	payload := []byte{0xAA, 0xBB, 0xCC}
	port := &fakePort{buf: buildFrame(0x00, sscp.ProtoAuthenticate, payload)}
	got, err := sscp.ExchangeRaw(port, 0x00, sscp.ProtoAuthenticate, payload, 256, time.Second, time.Second)
	if err != nil || string(got) != string(payload) {
		s.AddResult(s.fail(start, "framing", "framed echo", fmt.Sprintf("%X", payload), fmt.Sprintf("%X", got), fmt.Sprint(err)))
	} else {
		s.AddResult(s.pass(start, "framing", "framed echo", fmt.Sprintf("%X", got)))
	}

	start = time.Now()
	bad := buildFrame(0x00, sscp.ProtoAuthenticate, payload)
	bad[len(bad)-1] ^= 0xFF
	_, err = sscp.ExchangeRaw(&fakePort{buf: bad}, 0x00, sscp.ProtoAuthenticate, payload, 256, time.Second, time.Second)
	s.recordExpectedErr(start, "framing", "bad CRC rejected", sscp.ErrWrongCRC, err)

	start = time.Now()
	_, err = sscp.ExchangeRaw(&fakePort{}, 0x00, sscp.ProtoAuthenticate, payload, 256, time.Millisecond, time.Millisecond)
	s.recordExpectedErr(start, "framing", "silent reader is mute", sscp.ErrRecvMute, err)

	start = time.Now()
	frame := buildFrame(0x00, sscp.ProtoAuthenticate, payload)
	_, err = sscp.ExchangeRaw(&fakePort{buf: frame[:5]}, 0x00, sscp.ProtoAuthenticate, payload, 256, time.Millisecond, time.Millisecond)
	s.recordExpectedErr(start, "framing", "reader stops mid-frame", sscp.ErrRecvStopped, err)
}

// runAuthScenarios checks self-test authentication and rejection of a
// tampered reader signature.
func (s *Suite) runAuthScenarios() {
	start := time.Now()
	sess := sscp.NewSelfTestSession()
	err := sess.Authenticate()
	if err != nil || !sess.Authenticated() {
		s.AddResult(s.fail(start, "auth", "self-test authenticate", "authenticated", "not authenticated", fmt.Sprint(err)))
	} else {
		s.AddResult(s.pass(start, "auth", "self-test authenticate", "session keys installed"))
	}

	start = time.Now()
	bad := sscp.DefaultSelfTestVectors()
	bad.Round1Response = append([]byte(nil), bad.Round1Response...)
	bad.Round1Response[0] ^= 0xFF
	sess = sscp.NewSelfTestSession(sscp.WithSelfTest(bad))
	s.recordExpectedErr(start, "auth", "tampered reader signature rejected", sscp.ErrWrongSignature, sess.Authenticate())
}

// runExchangeScenarios checks the secure exchanger's response validation
// against scripted, hand-built reader replies.
func (s *Suite) runExchangeScenarios() {
	newAuthed := func(port sscp.Port) (*sscp.Session, error) {
		sess, err := sscp.OpenWithPort(port, 0x00,
			sscp.WithTimeouts(time.Second, time.Second),
			sscp.WithMaxRetry(0),
			sscp.WithSelfTest(s.Options.Vectors),
		)
		if err != nil {
			return nil, err
		}
		return sess, sess.Authenticate()
	}

	start := time.Now()
	sess, err := newAuthed(&fakePort{})
	if err != nil {
		s.AddResult(s.fail(start, "exchange", "session setup", "authenticated", "error", err.Error()))
		return
	}
	_, err = commands.TransceiveAPDU(sess, []byte{0x00, 0xA4, 0x04, 0x00})
	// no reply has been scripted into the port, so the only correct outcome
	// here is a transport timeout — this proves the wrapper round-trips
	// through the real secure-exchange path rather than short-circuiting it.
	s.recordExpectedErr(start, "exchange", "wrapper reaches the transport", sscp.ErrRecvMute, err)

	// a reply echoing the session's current counter must be rejected as a
	// replay; the authenticated counter is 1
	start = time.Now()
	sess, err = newAuthed(&fakePort{buf: buildSecureResponseFrame(1, 0x0001, nil, 0x03, 0x00)})
	if err != nil {
		s.AddResult(s.fail(start, "exchange", "stale counter rejected", "authenticated", "error", err.Error()))
		return
	}
	_, err = commands.TransceiveAPDU(sess, []byte{0x00})
	s.recordExpectedErr(start, "exchange", "stale counter rejected", sscp.ErrWrongCounter, err)

	// a valid reply whose data is the single status byte 0x01 means the
	// card went mute or was removed mid-transaction
	start = time.Now()
	sess, err = newAuthed(&fakePort{buf: buildSecureResponseFrame(2, 0x0001, []byte{0x01}, 0x03, 0x00)})
	if err != nil {
		s.AddResult(s.fail(start, "exchange", "card removal surfaced", "authenticated", "error", err.Error()))
		return
	}
	_, err = commands.TransceiveAPDU(sess, []byte{0x00})
	s.recordExpectedErr(start, "exchange", "card removal surfaced", sscp.ErrCardMuteOrRemoved, err)
}

// runRetryScenarios checks that a single dropped response is retried
// transparently and that exhausting retries surfaces the timeout.
func (s *Suite) runRetryScenarios() {
	start := time.Now()
	port := &fakePort{muteReads: 1}
	sess, _ := sscp.OpenWithPort(port, 0x00,
		sscp.WithTimeouts(time.Millisecond, time.Millisecond),
		sscp.WithMaxRetry(1),
		sscp.WithSelfTest(s.Options.Vectors),
	)
	_ = sess.Authenticate()

	_, err := commands.TransceiveAPDU(sess, []byte{0x00})
	// still no reply scripted past the one mute, so this must fail only
	// after the retry budget is spent, with the one recovered timeout
	// recorded in the stats.
	if err != sscp.ErrRecvMute || sess.Stats.ErrorCount != 1 {
		s.AddResult(s.fail(start, "retry", "retry budget honored", "1 recovered timeout then give up",
			fmt.Sprintf("err=%v count=%d", err, sess.Stats.ErrorCount), ""))
	} else {
		s.AddResult(s.pass(start, "retry", "retry budget honored", "1 recovered timeout recorded"))
	}
}

// runGuardScenarios checks that the guard-time gate actually blocks a
// caller for (approximately) the armed duration.
func (s *Suite) runGuardScenarios() {
	start := time.Now()
	sess, _ := sscp.OpenWithPort(&fakePort{}, 0x00, sscp.WithSelfTest(s.Options.Vectors))
	sess.GuardTime(30 * time.Millisecond)
	sess.WaitGuardTime()
	waited := time.Since(start)
	if waited < 20*time.Millisecond {
		s.AddResult(s.fail(start, "guard", "guard-time blocks the next call", ">=20ms", waited.String(), ""))
	} else {
		s.AddResult(s.pass(start, "guard", "guard-time blocks the next call", waited.String()))
	}
}

func (s *Suite) recordExpectedErr(start time.Time, category, name string, want, got error) {
	if got != want {
		s.AddResult(s.fail(start, category, name, fmt.Sprint(want), fmt.Sprint(got), ""))
		return
	}
	s.AddResult(s.pass(start, category, name, fmt.Sprint(got)))
}
