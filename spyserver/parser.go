package spyserver

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolVersion is returned when the server speaks another major/minor protocol version.
	ErrProtocolVersion = errors.New("spyserver: unsupported protocol version")
	// ErrBodyTooLarge is returned when a message announces a body over the 1 MiB limit.
	ErrBodyTooLarge = errors.New("spyserver: message body too large")
)

type message struct {
	header messageHeader
	body   []byte
}

// parser reassembles messages from a byte stream split at arbitrary points.
type parser struct {
	headerBuffer [messageHeaderSize]byte
	position     int
	readingBody  bool
	header       messageHeader
	body         []byte
}

func (p *parser) reset() {
	p.position = 0
	p.readingBody = false
	p.body = nil
}

// feed consumes buffer and calls emit for every complete message. The body handed
// to emit is owned by the callee.
func (p *parser) feed(buffer []byte, emit func(m *message) error) error {
	for len(buffer) > 0 {
		if !p.readingBody {
			n := copy(p.headerBuffer[p.position:], buffer)
			buffer = buffer[n:]
			p.position += n
			if p.position < messageHeaderSize {
				return nil
			}

			p.position = 0
			if err := p.startBody(decodeHeader(p.headerBuffer[:])); err != nil {
				return err
			}
			if p.header.BodySize == 0 {
				if err := p.deliver(emit); err != nil {
					return err
				}
			}
			continue
		}

		n := copy(p.body[p.position:], buffer)
		buffer = buffer[n:]
		p.position += n
		if p.position == len(p.body) {
			if err := p.deliver(emit); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) startBody(h messageHeader) error {
	clientMajor, clientMinor := protocolMajorMinor(ProtocolVersion)
	serverMajor, serverMinor := protocolMajorMinor(h.ProtocolID)
	if clientMajor != serverMajor || clientMinor != serverMinor {
		return fmt.Errorf("%w: server %d.%d, client %d.%d", ErrProtocolVersion,
			serverMajor, serverMinor, clientMajor, clientMinor)
	}
	if h.BodySize > maxMessageBodySize {
		return fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, h.BodySize)
	}

	p.header = h
	p.body = make([]byte, h.BodySize)
	p.position = 0
	p.readingBody = h.BodySize > 0
	return nil
}

func (p *parser) deliver(emit func(m *message) error) error {
	m := &message{header: p.header, body: p.body}
	p.reset()
	return emit(m)
}
