package vmess

import "github.com/xtls/vmess-codec/internal/vmesserrors"

// Option is the set of per-session behavior flags carried in the request
// header's option byte. It is modeled as a record of named booleans rather
// than a free bitmask so an unrecognized high bit fails at decode time
// instead of silently round-tripping.
type Option struct {
	// S marks a standard (non-legacy) stream.
	S bool
	// R requests connection reuse.
	R bool
	// M enables metadata obfuscation: the SHAKE-128 keystream is seeded
	// with the session body IV instead of running unseeded.
	M bool
	// P enables global chunk padding sized from the SHAKE keystream.
	P bool
	// A selects the chunk-mask variant.
	A bool
}

// DecodeOption parses a header option byte into an Option, failing with
// KindReservedBitsSet if any of the three high bits are set.
func DecodeOption(b byte) (Option, error) {
	if b&0xE0 != 0 {
		return Option{}, vmesserrors.New(vmesserrors.KindReservedBitsSet, "option byte has reserved high bits set")
	}
	return Option{
		S: b&0x01 != 0,
		R: b&0x02 != 0,
		M: b&0x04 != 0,
		P: b&0x08 != 0,
		A: b&0x10 != 0,
	}, nil
}

// Byte re-encodes the Option back into a header option byte. Used only by
// tests that build synthetic fixtures.
func (o Option) Byte() byte {
	var b byte
	if o.S {
		b |= 0x01
	}
	if o.R {
		b |= 0x02
	}
	if o.M {
		b |= 0x04
	}
	if o.P {
		b |= 0x08
	}
	if o.A {
		b |= 0x10
	}
	return b
}
