package vmess

import (
	"github.com/xtls/vmess-codec/internal/vmesserrors"
	"github.com/xtls/vmess-codec/proxy/vmess/encoding"
	"github.com/xtls/vmess-codec/proxy/vmess/kdf"
)

// responseHeaderLen is the fixed size of the server-authored response's
// encrypted header: response_header:1 | option:1 | command:1 | reserved:1.
const responseHeaderLen = 4

// responseState is a tagged variant over the lifecycle of a
// ResponseDecoder, mirroring requestState.
type responseState int

const (
	responseUnparsed responseState = iota
	responseHeaderParsed
)

// ResponseDecoder decodes a single server-authored VMess package: the
// encrypted acknowledgment header and the encrypted body frames. It is
// constructed from the Session extracted by a RequestDecoder. DecodeHeader
// must be called before DecodeBody.
type ResponseDecoder struct {
	data []byte

	expectedResponseHeader byte
	option                 Option
	security               Security

	serverKey [16]byte
	serverIV  [16]byte

	state responseState
}

// NewResponseDecoder creates a ResponseDecoder over data, a complete server
// package (4-byte encrypted header + encrypted body). responseHeader,
// clientIV, clientKey, option, and security are the values a RequestDecoder
// extracted into the paired request's Session.
func NewResponseDecoder(responseHeader byte, clientIV, clientKey [16]byte, option Option, security Security, data []byte) *ResponseDecoder {
	return &ResponseDecoder{
		data:                   data,
		expectedResponseHeader: responseHeader,
		option:                 option,
		security:               security,
		serverKey:              kdf.ServerKey(clientKey),
		serverIV:               kdf.ServerIV(clientIV),
	}
}

// DecodeHeader decrypts the 4-byte response header and validates it
// against the expected response-header byte and the all-zero reserved
// bytes.
func (d *ResponseDecoder) DecodeHeader() error {
	if len(d.data) < responseHeaderLen {
		return vmesserrors.New(vmesserrors.KindUnexpectedEOF, "response package shorter than its header")
	}
	var enc [4]byte
	copy(enc[:], d.data[:responseHeaderLen])

	if err := encoding.DecodeResponseHeader(enc, d.serverKey, d.serverIV, d.expectedResponseHeader); err != nil {
		return err
	}
	d.state = responseHeaderParsed
	return nil
}

// DecodeBody drives the body AEAD framing loop and returns the ordered
// plaintext frames. DecodeHeader must have succeeded first.
func (d *ResponseDecoder) DecodeBody() ([][]byte, error) {
	if d.state < responseHeaderParsed {
		return nil, vmesserrors.New(vmesserrors.KindInvalidState, "DecodeBody called before DecodeHeader")
	}

	security, err := bodySecurityFrom(d.security)
	if err != nil {
		return nil, err
	}

	return encoding.DecodeBody(
		security,
		d.serverKey,
		d.serverIV,
		d.option.M,
		d.option.P,
		d.data[responseHeaderLen:],
	)
}
