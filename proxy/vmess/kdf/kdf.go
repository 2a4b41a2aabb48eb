// Package kdf implements the VMess legacy key-derivation functions: the
// request header key/IV, the response (server) body key/IV, and the
// extended ChaCha20-Poly1305 key. All derivations bottom out in MD5 used
// purely as a 16-byte mixer, matching the wire format this codec decodes.
package kdf

import (
	"crypto/md5"
	"encoding/binary"
)

// headerKeySuffix is the fixed ASCII salt appended to the client UUID when
// deriving the request header key. It is a literal UUID string, not a
// parsed one.
const headerKeySuffix = "c48619fe-8f02-49e0-b9e9-edf763e17e21"

// HeaderIV derives the request header's AES-128-CFB IV from the recovered
// authentication timestamp: MD5(timestamp_be64 repeated 4 times).
func HeaderIV(timestamp uint64) [16]byte {
	var msg [32]byte
	putUint64Quad(msg[:], timestamp)
	return md5.Sum(msg[:])
}

// HeaderKey derives the request header's AES-128-CFB key from the client
// UUID: MD5(uuid || headerKeySuffix).
func HeaderKey(clientUUID [16]byte) [16]byte {
	buf := make([]byte, 0, 16+len(headerKeySuffix))
	buf = append(buf, clientUUID[:]...)
	buf = append(buf, headerKeySuffix...)
	return md5.Sum(buf)
}

// ServerIV derives the response header's AES-128-CFB IV from the client's
// body IV: MD5(body_iv).
func ServerIV(clientBodyIV [16]byte) [16]byte {
	return md5.Sum(clientBodyIV[:])
}

// ServerKey derives the response header's AES-128-CFB key from the client's
// body key: MD5(body_key).
func ServerKey(clientBodyKey [16]byte) [16]byte {
	return md5.Sum(clientBodyKey[:])
}

// ChaCha20ExtendedKey expands a 16-byte session key into the 32-byte key
// ChaCha20-Poly1305 needs: MD5(k) || MD5(MD5(k)).
func ChaCha20ExtendedKey(k [16]byte) [32]byte {
	var out [32]byte
	first := md5.Sum(k[:])
	second := md5.Sum(first[:])
	copy(out[:16], first[:])
	copy(out[16:], second[:])
	return out
}

func putUint64Quad(dst []byte, v uint64) {
	var one [8]byte
	binary.BigEndian.PutUint64(one[:], v)
	for i := 0; i < 4; i++ {
		copy(dst[i*8:i*8+8], one[:])
	}
}
