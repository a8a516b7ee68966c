package transfer

import (
	"fmt"
	"strings"
)

// Protocol selects the wire framing of a session. Both peers must use the same
// value; nothing on the wire identifies it.
type Protocol uint8

const (
	// ProtocolSizeDeclared sends total size and chunk size as raw headers,
	// followed by unprefixed chunks.
	ProtocolSizeDeclared Protocol = iota
	// ProtocolSentinel sends length-prefixed chunks terminated by a
	// zero-length frame.
	ProtocolSentinel
)

// String returns the configuration name of the protocol.
func (p Protocol) String() string {
	switch p {
	case ProtocolSizeDeclared:
		return "sized"
	case ProtocolSentinel:
		return "sentinel"
	default:
		return fmt.Sprintf("Protocol(%d)", uint8(p))
	}
}

// Valid reports whether p names a known protocol.
func (p Protocol) Valid() bool {
	return p == ProtocolSizeDeclared || p == ProtocolSentinel
}

// ParseProtocol parses a protocol name. Accepted names are "sized" (or
// "size-declared") and "sentinel", case-insensitively.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sized", "size-declared", "size_declared":
		return ProtocolSizeDeclared, nil
	case "sentinel":
		return ProtocolSentinel, nil
	default:
		return 0, fmt.Errorf("unknown protocol %q (want \"sized\" or \"sentinel\")", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Protocol) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown protocol %d", uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Protocol) UnmarshalText(text []byte) error {
	parsed, err := ParseProtocol(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
