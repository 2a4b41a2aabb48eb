// Package encoding implements the VMess request authentication, header, and
// body codecs: the pieces that turn raw ciphertext plus keying material
// into a negotiated Session and an ordered list of plaintext frames.
package encoding

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"hash/fnv"

	"github.com/xtls/vmess-codec/internal/cursor"
	"github.com/xtls/vmess-codec/internal/vmesserrors"
	"github.com/xtls/vmess-codec/proxy/vmess/kdf"
)

// Version is the only VMess header version this codec understands.
const Version = byte(1)

// sessionFields is what DecodeRequestHeader extracts, kept separate from
// the public vmess.Session type to avoid an import cycle between this
// package and proxy/vmess.
type sessionFields struct {
	Version        byte
	BodyIV         [16]byte
	BodyKey        [16]byte
	ResponseHeader byte
	OptionByte     byte
	PaddingLen     byte
	SecurityByte   byte
	Command        byte
	Port           uint16
	AddressType    byte
	Address        []byte
	HeaderLen      int
}

func newCFBStream(key, iv [16]byte, decrypt bool) (cipher.Stream, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	if decrypt {
		return cipher.NewCFBDecrypter(block, iv[:]), nil
	}
	return cipher.NewCFBEncrypter(block, iv[:]), nil
}

// DecodeRequestHeader decrypts and parses the request header that follows
// the 16-byte auth tag in a client package. body is the ciphertext from
// offset 16 onward (the full remainder of the package); only header_len
// bytes of the decryption output are consumed, the rest is discarded since
// CFB was run over more than the header.
func DecodeRequestHeader(body []byte, timestamp uint64, clientUUID [16]byte) (sessionFields, error) {
	headerIV := kdf.HeaderIV(timestamp)
	headerKey := kdf.HeaderKey(clientUUID)

	stream, err := newCFBStream(headerKey, headerIV, true)
	if err != nil {
		return sessionFields{}, vmesserrors.New(vmesserrors.KindUnexpectedEOF, "failed to construct header cipher").Base(err)
	}

	plaintext := make([]byte, len(body))
	stream.XORKeyStream(plaintext, body)

	c := cursor.New(plaintext)
	var fields sessionFields

	versionByte, err := c.ReadByte()
	if err != nil {
		return sessionFields{}, err
	}
	fields.Version = versionByte
	if fields.Version != Version {
		return sessionFields{}, vmesserrors.New(vmesserrors.KindVersionMismatch, "unexpected header version")
	}

	bodyIV, err := c.Read(16)
	if err != nil {
		return sessionFields{}, err
	}
	copy(fields.BodyIV[:], bodyIV)

	bodyKey, err := c.Read(16)
	if err != nil {
		return sessionFields{}, err
	}
	copy(fields.BodyKey[:], bodyKey)

	respHeader, err := c.ReadByte()
	if err != nil {
		return sessionFields{}, err
	}
	fields.ResponseHeader = respHeader

	optionByte, err := c.ReadByte()
	if err != nil {
		return sessionFields{}, err
	}
	if optionByte&0xE0 != 0 {
		return sessionFields{}, vmesserrors.New(vmesserrors.KindReservedBitsSet, "option byte has reserved high bits set")
	}
	fields.OptionByte = optionByte

	paddingSecurity, err := c.ReadByte()
	if err != nil {
		return sessionFields{}, err
	}
	fields.PaddingLen = paddingSecurity >> 4
	fields.SecurityByte = paddingSecurity & 0x0F

	if _, err := c.ReadByte(); err != nil { // reserved
		return sessionFields{}, err
	}

	command, err := c.ReadByte()
	if err != nil {
		return sessionFields{}, err
	}
	fields.Command = command
	if command == 3 {
		return sessionFields{}, vmesserrors.New(vmesserrors.KindUnsupportedCommand, "Mux command is not implemented")
	}

	portBytes, err := c.Read(2)
	if err != nil {
		return sessionFields{}, err
	}
	fields.Port = binary.BigEndian.Uint16(portBytes)

	addressType, err := c.ReadByte()
	if err != nil {
		return sessionFields{}, err
	}
	fields.AddressType = addressType

	switch addressType {
	case 1: // IPv4
		addr, err := c.Read(4)
		if err != nil {
			return sessionFields{}, err
		}
		fields.Address = append([]byte(nil), addr...)
	case 2: // domain
		length, err := c.ReadByte()
		if err != nil {
			return sessionFields{}, err
		}
		addr, err := c.Read(int(length))
		if err != nil {
			return sessionFields{}, err
		}
		fields.Address = append([]byte(nil), addr...)
	case 3: // IPv6
		addr, err := c.Read(16)
		if err != nil {
			return sessionFields{}, err
		}
		fields.Address = append([]byte(nil), addr...)
	default:
		return sessionFields{}, vmesserrors.New(vmesserrors.KindUnknownAddressType, "unrecognized address type")
	}

	if fields.PaddingLen > 0 {
		if _, err := c.Read(int(fields.PaddingLen)); err != nil {
			return sessionFields{}, err
		}
	}

	checksumBytes, err := c.Read(4)
	if err != nil {
		return sessionFields{}, err
	}
	expected := binary.BigEndian.Uint32(checksumBytes)

	fnv1a := fnv.New32a()
	fnv1a.Write(plaintext[:c.Position()-4])
	if fnv1a.Sum32() != expected {
		return sessionFields{}, vmesserrors.New(vmesserrors.KindChecksumMismatch, "FNV-1a-32 header checksum mismatch")
	}

	fields.HeaderLen = c.Position()
	return fields, nil
}

// DecodeResponseHeader decrypts the 4-byte response header with the
// server key/IV derived from the client's session, and validates it
// against the expected response-header byte carried in the Session.
func DecodeResponseHeader(enc [4]byte, serverKey, serverIV [16]byte, expectedResponseHeader byte) error {
	stream, err := newCFBStream(serverKey, serverIV, true)
	if err != nil {
		return vmesserrors.New(vmesserrors.KindUnexpectedEOF, "failed to construct response header cipher").Base(err)
	}
	var plaintext [4]byte
	stream.XORKeyStream(plaintext[:], enc[:])

	if plaintext[0] != expectedResponseHeader {
		return vmesserrors.New(vmesserrors.KindResponseHeaderMismatch, "response header byte does not match expected value")
	}
	if plaintext[1] != 0 || plaintext[2] != 0 || plaintext[3] != 0 {
		return vmesserrors.New(vmesserrors.KindResponseHeaderMismatch, "response header reserved bytes are not zero")
	}
	return nil
}
