package encoding

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"github.com/xtls/vmess-codec/internal/cursor"
	"github.com/xtls/vmess-codec/internal/vmesserrors"
	"github.com/xtls/vmess-codec/proxy/vmess/kdf"
	"golang.org/x/crypto/chacha20poly1305"
)

// Security mirrors vmess.Security's byte values without importing the
// parent package, avoiding an import cycle (proxy/vmess imports this
// package, not the reverse).
type Security byte

const (
	SecurityAES128GCM        Security = 3
	SecurityChaCha20Poly1305 Security = 4
)

func newFrameAEAD(security Security, key [16]byte) (cipher.AEAD, error) {
	switch security {
	case SecurityAES128GCM:
		block, err := aes.NewCipher(key[:])
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case SecurityChaCha20Poly1305:
		extended := kdf.ChaCha20ExtendedKey(key)
		return chacha20poly1305.New(extended[:])
	default:
		return nil, vmesserrors.New(vmesserrors.KindUnsupportedSecurity, "security suite is not decodable at body time")
	}
}

// DecodeBody drives the AEAD framing loop over body (the ciphertext
// following the header in either direction) until exhausted, returning the
// ordered list of plaintext frames. metadataObfuscation and padding
// correspond to the Session's option M and P flags; ivSeed is the body IV
// used both to seed the SHAKE keystream (when metadataObfuscation is set)
// and to build the per-frame AEAD nonce.
func DecodeBody(security Security, key, iv [16]byte, metadataObfuscation, padding bool, body []byte) ([][]byte, error) {
	aead, err := newFrameAEAD(security, key)
	if err != nil {
		return nil, err
	}

	var seed []byte
	if metadataObfuscation {
		seed = iv[:]
	}
	ks := newShakeKeystream(seed)

	c := cursor.New(body)
	var frames [][]byte

	for i := 0; !c.Exhausted(); i++ {
		nonce := make([]byte, 12)
		binary.BigEndian.PutUint16(nonce[:2], uint16(i))
		copy(nonce[2:], iv[2:12])

		var padLen uint16
		if padding {
			padLen = ks.nextPaddingLen()
		}

		fakeLenBytes, err := c.Read(2)
		if err != nil {
			return nil, err
		}
		fakeLength := binary.BigEndian.Uint16(fakeLenBytes)
		realLength := ks.unmask(fakeLength)

		frameCiphertext, err := c.Read(int(realLength))
		if err != nil {
			return nil, err
		}

		sealed := frameCiphertext
		if padding {
			if int(padLen) > len(frameCiphertext) {
				return nil, vmesserrors.New(vmesserrors.KindUnexpectedEOF, "padding length exceeds frame size")
			}
			sealed = frameCiphertext[:len(frameCiphertext)-int(padLen)]
		}

		if len(sealed) < aead.Overhead() {
			return nil, vmesserrors.New(vmesserrors.KindUnexpectedEOF, "sealed frame shorter than AEAD tag")
		}

		plaintext, err := aead.Open(nil, nonce, sealed, nil)
		if err != nil {
			return nil, vmesserrors.New(vmesserrors.KindAuthTagMismatch, "AEAD tag verification failed for frame").Base(err)
		}

		frames = append(frames, plaintext)
	}

	return frames, nil
}
