package encoding

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// shakeKeystream is a SHAKE-128 XOF used as a deterministic keystream to
// mask frame lengths and, when enabled, to size per-frame padding. It is a
// single continuous stream across a body decode call: padding and
// length-mask reads must happen in exactly the order the protocol defines,
// or the stream desyncs for every subsequent frame.
type shakeKeystream struct {
	shake  sha3.ShakeHash
	buffer [2]byte
}

// newShakeKeystream creates the keystream. When metadata obfuscation
// (option M) is enabled, seed should be the session body IV; otherwise
// pass nil to run the XOF unseeded.
func newShakeKeystream(seed []byte) *shakeKeystream {
	shake := sha3.NewShake128()
	if len(seed) > 0 {
		shake.Write(seed)
	}
	return &shakeKeystream{shake: shake}
}

// next returns the next 2 bytes of keystream as a big-endian uint16.
func (s *shakeKeystream) next() uint16 {
	s.shake.Read(s.buffer[:])
	return binary.BigEndian.Uint16(s.buffer[:])
}

// unmask recovers the real frame length from the fake length on the wire.
func (s *shakeKeystream) unmask(fakeLength uint16) uint16 {
	return fakeLength ^ s.next()
}

// nextPaddingLen draws the next padding size, 0..63, from the keystream.
func (s *shakeKeystream) nextPaddingLen() uint16 {
	return s.next() % 64
}
