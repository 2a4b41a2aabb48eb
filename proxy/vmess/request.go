package vmess

import (
	"time"

	"github.com/google/uuid"

	"github.com/xtls/vmess-codec/internal/vmesserrors"
	"github.com/xtls/vmess-codec/proxy/vmess/encoding"
)

// authTagLen is the fixed size of the request package's leading HMAC tag.
const authTagLen = 16

// requestState is a tagged variant over the lifecycle of a RequestDecoder,
// used instead of sentinel values (e.g. timestamp == -1) to enforce method
// ordering.
type requestState int

const (
	requestUnauthenticated requestState = iota
	requestAuthenticated
	requestHeaderParsed
	requestBodyParsed
)

// RequestDecoder decodes a single client-authored VMess package: the
// leading auth tag, the encrypted header, and the encrypted body frames.
// Its three methods must be called in order: Authenticate, DecodeHeader,
// DecodeBody.
type RequestDecoder struct {
	clientUUID uuid.UUID
	data       []byte
	authWindow time.Duration

	state     requestState
	timestamp uint64
	headerLen int
	session   Session
}

// RequestDecoderOption configures a RequestDecoder at construction time.
type RequestDecoderOption func(*RequestDecoder)

// WithAuthWindow overrides the symmetric clock-skew tolerance used by
// Authenticate. The default is encoding.DefaultAuthWindow (30s) each side.
func WithAuthWindow(window time.Duration) RequestDecoderOption {
	return func(d *RequestDecoder) {
		d.authWindow = window
	}
}

// NewRequestDecoder creates a RequestDecoder over data, a complete client
// package (auth tag + encrypted header + encrypted body). clientUUID is the
// expected client identity used both to authenticate the package and to
// derive the request header key.
func NewRequestDecoder(clientUUID uuid.UUID, data []byte, opts ...RequestDecoderOption) *RequestDecoder {
	d := &RequestDecoder{
		clientUUID: clientUUID,
		data:       data,
		authWindow: encoding.DefaultAuthWindow,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Authenticate scans the configured time window for the HMAC-MD5 tag that
// matches the package's first 16 bytes, returning the recovered Unix
// timestamp. It must be called before DecodeHeader.
func (d *RequestDecoder) Authenticate(startTime int64) (uint64, error) {
	if len(d.data) < authTagLen {
		return 0, vmesserrors.New(vmesserrors.KindUnexpectedEOF, "package shorter than the authentication tag")
	}
	var tag [16]byte
	copy(tag[:], d.data[:authTagLen])

	ts, err := encoding.Authenticate(tag, [16]byte(d.clientUUID), startTime, d.authWindow)
	if err != nil {
		return 0, err
	}
	d.timestamp = ts
	d.state = requestAuthenticated
	return ts, nil
}

// DecodeHeader decrypts and parses the request header, populating and
// returning the Session. Authenticate must have succeeded first.
func (d *RequestDecoder) DecodeHeader() (Session, error) {
	if d.state < requestAuthenticated {
		return Session{}, vmesserrors.New(vmesserrors.KindInvalidState, "DecodeHeader called before Authenticate")
	}

	fields, err := encoding.DecodeRequestHeader(d.data[authTagLen:], d.timestamp, [16]byte(d.clientUUID))
	if err != nil {
		return Session{}, err
	}

	option, err := DecodeOption(fields.OptionByte)
	if err != nil {
		return Session{}, err
	}

	d.session = Session{
		ClientUUID:     d.clientUUID,
		Timestamp:      d.timestamp,
		Version:        fields.Version,
		BodyIV:         fields.BodyIV,
		BodyKey:        fields.BodyKey,
		ResponseHeader: fields.ResponseHeader,
		Option:         option,
		PaddingLen:     fields.PaddingLen,
		Security:       Security(fields.SecurityByte),
		Command:        Command(fields.Command),
		Port:           fields.Port,
		AddressType:    AddressType(fields.AddressType),
		Address:        fields.Address,
	}
	d.headerLen = fields.HeaderLen
	d.state = requestHeaderParsed
	return d.session, nil
}

// DecodeBody drives the body AEAD framing loop and returns the ordered
// plaintext frames. DecodeHeader must have succeeded first.
func (d *RequestDecoder) DecodeBody() ([][]byte, error) {
	if d.state < requestHeaderParsed {
		return nil, vmesserrors.New(vmesserrors.KindInvalidState, "DecodeBody called before DecodeHeader")
	}

	security, err := bodySecurityFrom(d.session.Security)
	if err != nil {
		return nil, err
	}

	bodyStart := authTagLen + d.headerLen
	frames, err := encoding.DecodeBody(
		security,
		d.session.BodyKey,
		d.session.BodyIV,
		d.session.Option.M,
		d.session.Option.P,
		d.data[bodyStart:],
	)
	if err != nil {
		return nil, err
	}
	d.state = requestBodyParsed
	return frames, nil
}

func bodySecurityFrom(s Security) (encoding.Security, error) {
	switch s {
	case SecurityAES128GCM:
		return encoding.SecurityAES128GCM, nil
	case SecurityChaCha20Poly1305:
		return encoding.SecurityChaCha20Poly1305, nil
	default:
		return 0, vmesserrors.New(vmesserrors.KindUnsupportedSecurity, "security suite is not decodable at body time")
	}
}
