//go:build linux

package sscp

import (
	"fmt"
	"time"

	"github.com/daedaluz/goserial"
)

// baudTable maps the five baud rates the reader supports to the termios
// constants goserial expects.
var baudTable = map[int]serial.CFlag{
	9600:   serial.B9600,
	19200:  serial.B19200,
	38400:  serial.B38400,
	57600:  serial.B57600,
	115200: serial.B115200,
}

// serialPort wraps a real OS serial port opened through goserial. Receive
// timeouts are driven through termios VMIN=0/VTIME: a timed-out read
// returns zero bytes with no error, which is exactly what the framed
// codec's mute/stopped detection is built on. The programmed VTIME is
// cached so switching between the first-byte and inter-byte timeouts only
// touches the tty when the value actually changes.
type serialPort struct {
	p     *serial.Port
	attrs *serial.Termios
	vtime byte // currently programmed VTIME, in deciseconds
}

// OpenSerial opens name (e.g. "/dev/ttyUSB0") at baud, 8N1, no flow control,
// and readies it for the framed codec's two-phase receive.
func OpenSerial(name string, baud int) (Port, error) {
	cflag, ok := baudTable[baud]
	if !ok {
		return nil, &Error{Kind: KindInvalidUse, Err: fmt.Errorf("unsupported baud rate %d", baud)}
	}

	opts := serial.NewOptions()
	p, err := serial.Open(name, opts)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}

	attrs, err := p.GetAttr()
	if err != nil {
		p.Close()
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	attrs.MakeRaw()
	attrs.SetSpeed(cflag)
	attrs.Cflag |= serial.CS8
	attrs.Cflag &^= serial.PARENB | serial.CSTOPB
	attrs.Cc[serial.VMIN] = 0
	attrs.Cc[serial.VTIME] = 1
	if err := p.SetAttr(serial.TCSANOW, attrs); err != nil {
		p.Close()
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("configure port: %w", err)}
	}

	return &serialPort{p: p, attrs: attrs, vtime: 1}, nil
}

func (s *serialPort) Write(p []byte) (int, error) {
	n, err := s.p.Write(p)
	if err != nil {
		return n, &Error{Kind: KindTransport, Err: err}
	}
	return n, nil
}

func (s *serialPort) Read(p []byte, timeout time.Duration) (int, error) {
	if err := s.setTimeout(timeout); err != nil {
		return 0, err
	}
	n, err := s.p.Read(p)
	if err != nil {
		return n, &Error{Kind: KindTransport, Err: err}
	}
	return n, nil
}

// setTimeout reprograms VTIME when the requested timeout differs from the
// one already in effect. VTIME is in deciseconds, rounded up, clamped to
// its one-byte range.
func (s *serialPort) setTimeout(timeout time.Duration) error {
	ds := (timeout + 99*time.Millisecond) / (100 * time.Millisecond)
	if ds < 1 {
		ds = 1
	}
	if ds > 255 {
		ds = 255
	}
	if byte(ds) == s.vtime {
		return nil
	}
	s.attrs.Cc[serial.VTIME] = byte(ds)
	if err := s.p.SetAttr(serial.TCSANOW, s.attrs); err != nil {
		return &Error{Kind: KindTransport, Err: fmt.Errorf("set receive timeout: %w", err)}
	}
	s.vtime = byte(ds)
	return nil
}

func (s *serialPort) Close() error {
	if err := s.p.Close(); err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	return nil
}
