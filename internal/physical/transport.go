package physical

import (
	"io"
	"sync"
	"time"

	serial "github.com/daedaluz/goserial"
)

// Transport is the byte-oriented sink/source that this package's framing
// encodes onto and decodes from (datalink.Link writes Encode'd frames to
// it). spec.md's explicit Non-goal excludes driver
// initialization (register-level UART bring-up); this is transport
// plumbing one layer above that, exactly the kind a host-side build of
// this stack needs.
type Transport interface {
	io.Writer
	io.Reader
	Close() error
}

// PipeTransport is an in-memory Transport, useful for tests and for
// running two simulated nodes against each other without real hardware.
type PipeTransport struct {
	mu   sync.Mutex
	cond *sync.Cond
	buf  []byte
	peer *PipeTransport
}

// NewPipePair returns two PipeTransports, each of which reads what the
// other writes.
func NewPipePair() (a, b *PipeTransport) {
	a, b = &PipeTransport{}, &PipeTransport{}
	a.cond = sync.NewCond(&a.mu)
	b.cond = sync.NewCond(&b.mu)
	a.peer, b.peer = b, a
	return a, b
}

func (p *PipeTransport) Write(data []byte) (int, error) {
	peer := p.peer
	peer.mu.Lock()
	peer.buf = append(peer.buf, data...)
	peer.cond.Signal()
	peer.mu.Unlock()
	return len(data), nil
}

func (p *PipeTransport) Read(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.buf) == 0 {
		p.cond.Wait()
	}
	n := copy(data, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *PipeTransport) Close() error { return nil }

// SerialTransport wraps a real serial port via daedaluz/goserial, framed
// underneath by this package's STX/ETX/DLE encoding.
type SerialTransport struct {
	port *serial.Port
}

// OpenSerial opens device at the given path with a read timeout, the host
// side of whatever baud/parity configuration the operator has already set
// on the port (spec.md's Non-goal excludes baud/driver configuration as a
// concern of this core).
func OpenSerial(device string, readTimeout time.Duration) (*SerialTransport, error) {
	opts := serial.NewOptions().SetReadTimeout(readTimeout)
	port, err := serial.Open(device, opts)
	if err != nil {
		return nil, err
	}
	return &SerialTransport{port: port}, nil
}

func (s *SerialTransport) Write(data []byte) (int, error) { return s.port.Write(data) }
func (s *SerialTransport) Read(data []byte) (int, error)  { return s.port.Read(data) }
func (s *SerialTransport) Close() error                   { return s.port.Close() }
