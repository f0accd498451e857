package types

import "fmt"

// Protocol is the wire or iteration protocol a generation provider speaks
type Protocol string

const (
	// ProtocolLineFramed is a byte stream of "data: {json}" lines
	ProtocolLineFramed Protocol = "line_framed"
	// ProtocolNativeIterator yields discrete text fragments from the client library
	ProtocolNativeIterator Protocol = "native_iterator"
)

// IsValid checks if the protocol is valid
func (p Protocol) IsValid() bool {
	switch p {
	case ProtocolLineFramed,
		ProtocolNativeIterator:
		return true
	default:
		return false
	}
}

func (p Protocol) String() string {
	return string(p)
}

// ParseProtocol parses a string into a Protocol
func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid protocol: %s", s)
	}
	return p, nil
}
