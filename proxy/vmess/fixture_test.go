package vmess

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/md5"
	"encoding/binary"
	"hash/fnv"
	"testing"

	"github.com/google/uuid"

	"github.com/xtls/vmess-codec/proxy/vmess/encoding"
	"github.com/xtls/vmess-codec/proxy/vmess/kdf"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/sha3"
)

// The helpers below build synthetic, well-formed VMess packages so the
// facade can be round-tripped without checked-in binary fixtures: they are
// a minimal conforming encoder used only from tests, mirroring the exact
// byte layout and keystream discipline DecodeRequestHeader/DecodeBody
// expect, per the wire format in SPEC_FULL.md §6.

type fixtureHeader struct {
	bodyIV, bodyKey [16]byte
	responseHeader  byte
	option          Option
	paddingLen      byte
	security        Security
	command         Command
	port            uint16
	addressType     AddressType
	address         []byte
	headerPadding   []byte
}

func cfbStream(t *testing.T, key, iv [16]byte, encrypt bool) cipher.Stream {
	t.Helper()
	block, err := aes.NewCipher(key[:])
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	if encrypt {
		return cipher.NewCFBEncrypter(block, iv[:])
	}
	return cipher.NewCFBDecrypter(block, iv[:])
}

func buildHeaderPlaintext(h fixtureHeader) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, encoding.Version)
	buf = append(buf, h.bodyIV[:]...)
	buf = append(buf, h.bodyKey[:]...)
	buf = append(buf, h.responseHeader)
	buf = append(buf, h.option.Byte())
	buf = append(buf, (h.paddingLen<<4)|byte(h.security))
	buf = append(buf, 0x00) // reserved
	buf = append(buf, byte(h.command))
	var portBytes [2]byte
	binary.BigEndian.PutUint16(portBytes[:], h.port)
	buf = append(buf, portBytes[:]...)
	buf = append(buf, byte(h.addressType))
	switch h.addressType {
	case AddressTypeDomain:
		buf = append(buf, byte(len(h.address)))
		buf = append(buf, h.address...)
	default:
		buf = append(buf, h.address...)
	}
	buf = append(buf, h.headerPadding...)

	fnv1a := fnv.New32a()
	fnv1a.Write(buf)
	var checksum [4]byte
	binary.BigEndian.PutUint32(checksum[:], fnv1a.Sum32())
	return append(buf, checksum[:]...)
}

func fixtureAuthTag(clientUUID uuid.UUID, timestamp uint64) [16]byte {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], timestamp)
	mac := hmac.New(md5.New, clientUUID[:])
	mac.Write(msg[:])
	var tag [16]byte
	copy(tag[:], mac.Sum(nil))
	return tag
}

func fixtureChaCha20Key(k [16]byte) [32]byte {
	var out [32]byte
	first := md5.Sum(k[:])
	second := md5.Sum(first[:])
	copy(out[:16], first[:])
	copy(out[16:], second[:])
	return out
}

func fixtureAEAD(t *testing.T, security Security, key [16]byte) cipher.AEAD {
	t.Helper()
	switch security {
	case SecurityAES128GCM:
		block, err := aes.NewCipher(key[:])
		if err != nil {
			t.Fatalf("aes.NewCipher: %v", err)
		}
		a, err := cipher.NewGCM(block)
		if err != nil {
			t.Fatalf("cipher.NewGCM: %v", err)
		}
		return a
	case SecurityChaCha20Poly1305:
		extended := fixtureChaCha20Key(key)
		a, err := chacha20poly1305.New(extended[:])
		if err != nil {
			t.Fatalf("chacha20poly1305.New: %v", err)
		}
		return a
	default:
		t.Fatalf("unsupported security %v", security)
		return nil
	}
}

func fixtureSealBody(t *testing.T, security Security, key, iv [16]byte, metaObfuscation, padding bool, plaintexts [][]byte) []byte {
	t.Helper()
	aead := fixtureAEAD(t, security, key)

	var seed []byte
	if metaObfuscation {
		seed = iv[:]
	}
	shake := sha3.NewShake128()
	if len(seed) > 0 {
		shake.Write(seed)
	}
	next := func() uint16 {
		var b [2]byte
		shake.Read(b[:])
		return binary.BigEndian.Uint16(b[:])
	}

	var out bytes.Buffer
	for i, pt := range plaintexts {
		nonce := make([]byte, 12)
		binary.BigEndian.PutUint16(nonce[:2], uint16(i))
		copy(nonce[2:], iv[2:12])

		sealed := aead.Seal(nil, nonce, pt, nil)

		if padding {
			padLen := next() % 64
			sealed = append(sealed, make([]byte, padLen)...)
		}

		realLength := uint16(len(sealed))
		fakeLength := realLength ^ next()

		var lenBytes [2]byte
		binary.BigEndian.PutUint16(lenBytes[:], fakeLength)
		out.Write(lenBytes[:])
		out.Write(sealed)
	}
	return out.Bytes()
}

// buildClientPackage assembles a complete client-authored VMess package:
// auth tag || encrypted header || encrypted body frames.
func buildClientPackage(t *testing.T, clientUUID uuid.UUID, timestamp uint64, h fixtureHeader, plaintexts [][]byte) []byte {
	t.Helper()

	plainHeader := buildHeaderPlaintext(h)
	headerStream := cfbStream(t, kdf.HeaderKey([16]byte(clientUUID)), kdf.HeaderIV(timestamp), true)
	encHeader := make([]byte, len(plainHeader))
	headerStream.XORKeyStream(encHeader, plainHeader)

	body := fixtureSealBody(t, h.security, h.bodyKey, h.bodyIV, h.option.M, h.option.P, plaintexts)

	tag := fixtureAuthTag(clientUUID, timestamp)

	pkg := make([]byte, 0, len(tag)+len(encHeader)+len(body))
	pkg = append(pkg, tag[:]...)
	pkg = append(pkg, encHeader...)
	pkg = append(pkg, body...)
	return pkg
}

// buildServerPackage assembles a complete server-authored VMess package:
// encrypted 4-byte header || encrypted body frames, keyed from the
// client's body IV/key per the KDF.
func buildServerPackage(t *testing.T, responseHeader byte, clientIV, clientKey [16]byte, option Option, security Security, plaintexts [][]byte) []byte {
	t.Helper()

	serverKey := kdf.ServerKey(clientKey)
	serverIV := kdf.ServerIV(clientIV)

	plainHeader := [4]byte{responseHeader, 0, 0, 0}
	stream := cfbStream(t, serverKey, serverIV, true)
	var encHeader [4]byte
	stream.XORKeyStream(encHeader[:], plainHeader[:])

	body := fixtureSealBody(t, security, serverKey, serverIV, option.M, option.P, plaintexts)

	pkg := make([]byte, 0, 4+len(body))
	pkg = append(pkg, encHeader[:]...)
	pkg = append(pkg, body...)
	return pkg
}
