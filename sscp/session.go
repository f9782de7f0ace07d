package sscp

import (
	"time"
)

// defaultKey is the embedded default transport key used when no caller key
// is supplied.
var defaultKey = []byte{
	0xE7, 0x4A, 0x54, 0x0F, 0xA0, 0x7C, 0x4D, 0xB1,
	0xB4, 0x64, 0x21, 0x12, 0x6D, 0xF7, 0xAD, 0x36,
}

const (
	defaultFirstTimeout = 1000 * time.Millisecond
	defaultNextTimeout  = 100 * time.Millisecond
	defaultMaxRetry     = 2
)

// Stats tracks per-session counters and timestamps, purely for
// observability: nothing in the protocol state machine reads them back.
type Stats struct {
	WhenOpen      time.Time
	WhenSession   time.Time
	SessionCount  int
	ErrorCount    int
	BytesSent     uint64
	BytesReceived uint64
}

// SelfTestVectors are the literal deterministic values substituted for the
// RNG and for both reader responses when a session runs in self-test mode.
type SelfTestVectors struct {
	RndA           []byte
	Round1Response []byte
	Round2Response []byte
	IV             []byte
	PaddingPattern []byte
}

// DefaultSelfTestVectors returns the vector set every implementation must
// reproduce bit-for-bit when self-test mode is enabled.
func DefaultSelfTestVectors() SelfTestVectors {
	return SelfTestVectors{
		RndA: []byte{
			0x75, 0xCC, 0xF7, 0xB1, 0xF7, 0xFE, 0xA6, 0xF7,
			0x58, 0x71, 0xFC, 0xF6, 0xDC, 0x75, 0x59, 0x23,
		},
		Round1Response: []byte{
			0x53, 0x77, 0x07, 0xAD, 0x48, 0x6F, 0x07, 0xAD,
			0x75, 0xCC, 0xF7, 0xB1, 0xF7, 0xFE, 0xA6, 0xF7,
			0x58, 0x71, 0xFC, 0xF6, 0xDC, 0x75, 0x59, 0x23,
			0xC8, 0xEE, 0x7C, 0x37, 0x5C, 0x21, 0xEA, 0xC5,
			0x1B, 0xD9, 0x7C, 0x51, 0xC6, 0x9F, 0x39, 0x5B,
			0x69, 0xF6, 0x61, 0x77, 0x07, 0xD9, 0x44, 0x29,
			0x40, 0xC3, 0x9B, 0xEB, 0xFA, 0x0B, 0x44, 0x59,
			0xCE, 0xBF, 0x6C, 0xD5, 0xE6, 0x10, 0xEA, 0x1F,
			0xF4, 0x4B, 0x34, 0x1E, 0x29, 0x16, 0x54, 0xA9,
		},
		Round2Response: []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x08},
		IV: []byte{
			0x7C, 0x3D, 0xE3, 0xF3, 0xE1, 0x91, 0xD3, 0xCD,
			0x3A, 0x09, 0x3E, 0x64, 0x3B, 0xF0, 0x35, 0xCE,
		},
		PaddingPattern: []byte{0xBA, 0x40, 0x5E, 0xDD},
	}
}

// Session owns one open transport, its address, secure-exchange counter,
// the four derived session keys, guard-time state and stats. One Session
// exclusively owns one Port for its lifetime and must not be used from
// multiple goroutines concurrently.
type Session struct {
	port Port
	addr byte

	counter uint32

	keyCipherAB []byte
	keyCipherBA []byte
	keySignAB   []byte
	keySignBA   []byte

	guard guardTime

	Stats Stats

	firstTimeout time.Duration
	nextTimeout  time.Duration
	maxRetry     int

	authKey  []byte
	selfTest *SelfTestVectors
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithKey overrides the default transport key used during authentication.
func WithKey(k []byte) Option {
	return func(s *Session) { s.authKey = append([]byte(nil), k...) }
}

// WithTimeouts overrides the framed codec's first-byte and inter-byte
// receive timeouts.
func WithTimeouts(first, next time.Duration) Option {
	return func(s *Session) {
		s.firstTimeout = first
		s.nextTimeout = next
	}
}

// WithMaxRetry overrides how many timeout-triggered retries the secure
// exchanger performs before giving up.
func WithMaxRetry(n int) Option {
	return func(s *Session) { s.maxRetry = n }
}

// WithSelfTest puts the session in self-test mode: Authenticate injects the
// given vectors instead of drawing randomness or touching the transport.
func WithSelfTest(v SelfTestVectors) Option {
	return func(s *Session) { s.selfTest = &v }
}

func newSession(port Port, addr byte, opts ...Option) *Session {
	s := &Session{
		port:         port,
		addr:         addr,
		firstTimeout: defaultFirstTimeout,
		nextTimeout:  defaultNextTimeout,
		maxRetry:     defaultMaxRetry,
		authKey:      append([]byte(nil), defaultKey...),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the named serial port at baud, addresses RS-485 target addr
// (0 for point-to-point RS-232), and returns an unauthenticated Session.
func Open(name string, baud int, addr byte, opts ...Option) (*Session, error) {
	port, err := OpenSerial(name, baud)
	if err != nil {
		return nil, err
	}
	s := newSession(port, addr, opts...)
	s.Stats.WhenOpen = time.Now()
	return s, nil
}

// OpenWithPort builds a Session around an already-open Port, bypassing
// platform-specific transport setup. Intended for tests and for callers
// that manage the serial connection themselves.
func OpenWithPort(port Port, addr byte, opts ...Option) (*Session, error) {
	s := newSession(port, addr, opts...)
	s.Stats.WhenOpen = time.Now()
	return s, nil
}

// NewSelfTestSession builds a session with no transport, intended only for
// running Authenticate in self-test mode. Exchange on such a session
// returns ErrPortNotOpen; use OpenWithPort with WithSelfTest to exchange.
func NewSelfTestSession(opts ...Option) *Session {
	opts = append([]Option{WithSelfTest(DefaultSelfTestVectors())}, opts...)
	s := newSession(nil, 0, opts...)
	s.Stats.WhenOpen = time.Now()
	return s
}

// Authenticated reports whether all four session keys are installed.
func (s *Session) Authenticated() bool {
	return s.keyCipherAB != nil && s.keyCipherBA != nil && s.keySignAB != nil && s.keySignBA != nil
}

// GuardTime arms a guard-time window of duration d, first waiting out any
// previously armed window.
func (s *Session) GuardTime(d time.Duration) { s.guard.GuardTime(d) }

// WaitGuardTime blocks until the currently armed guard window elapses.
func (s *Session) WaitGuardTime() { s.guard.WaitGuardTime() }

// Close releases the transport and zeroizes the session keys. Safe to call
// on a self-test session with no transport.
func (s *Session) Close() error {
	zeroize(s.keyCipherAB)
	zeroize(s.keyCipherBA)
	zeroize(s.keySignAB)
	zeroize(s.keySignBA)
	zeroize(s.authKey)
	s.keyCipherAB, s.keyCipherBA, s.keySignAB, s.keySignBA = nil, nil, nil, nil

	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
