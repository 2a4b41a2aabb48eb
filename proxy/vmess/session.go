package vmess

import (
	"fmt"
	"net"

	"github.com/google/uuid"
)

// Security is the body AEAD suite selected by the request header's low
// nibble of the padding/security byte.
type Security byte

const (
	SecurityLegacy           Security = 1
	SecurityAES128GCM        Security = 3
	SecurityChaCha20Poly1305 Security = 4
	SecurityNone             Security = 5
)

func (s Security) String() string {
	switch s {
	case SecurityNone:
		return "None"
	case SecurityLegacy:
		return "Legacy"
	case SecurityAES128GCM:
		return "AES-128-GCM"
	case SecurityChaCha20Poly1305:
		return "ChaCha20-Poly1305"
	default:
		return "Unknown"
	}
}

// Command is the requested connection kind from header byte 37.
type Command byte

const (
	CommandTCP Command = 1
	CommandUDP Command = 2
	CommandMux Command = 3
)

func (c Command) String() string {
	switch c {
	case CommandTCP:
		return "TCP"
	case CommandUDP:
		return "UDP"
	case CommandMux:
		return "Mux"
	default:
		return "Unknown"
	}
}

// AddressType selects how Session.Address is laid out on the wire.
type AddressType byte

const (
	AddressTypeIPv4   AddressType = 1
	AddressTypeDomain AddressType = 2
	AddressTypeIPv6   AddressType = 3
)

// Session holds everything the request HeaderCodec extracts and the
// BodyCodec and paired ResponseDecoder need. It is populated exactly once,
// by DecodeHeader, and is treated as immutable afterward.
type Session struct {
	ClientUUID uuid.UUID

	Timestamp uint64
	Version   byte

	BodyIV  [16]byte
	BodyKey [16]byte

	ResponseHeader byte
	Option         Option
	PaddingLen     byte
	Security       Security

	Command     Command
	Port        uint16
	AddressType AddressType
	Address     []byte
}

// String renders a human-readable summary of the decoded session, naming
// the symbolic Security/Command/AddressType the way an operator reading a
// log line would expect.
func (s Session) String() string {
	addr := fmt.Sprintf("%x", s.Address)
	switch s.AddressType {
	case AddressTypeIPv4, AddressTypeIPv6:
		if ip := net.IP(s.Address); ip != nil {
			addr = ip.String()
		}
	case AddressTypeDomain:
		addr = string(s.Address)
	}
	return fmt.Sprintf(
		"Session{timestamp=%d version=%d security=%s command=%s address=%s:%d option=%+v}",
		s.Timestamp, s.Version, s.Security, s.Command, addr, s.Port, s.Option,
	)
}
