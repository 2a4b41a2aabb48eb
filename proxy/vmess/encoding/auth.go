package encoding

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/subtle"
	"encoding/binary"
	"time"

	"github.com/xtls/vmess-codec/internal/vmesserrors"
)

// DefaultAuthWindow is the default symmetric clock-skew tolerance used by
// Authenticate when the caller doesn't override it.
const DefaultAuthWindow = 30 * time.Second

// Authenticate scans a bounded window of candidate Unix timestamps around
// startTime for the one whose HMAC-MD5(uuid, timestamp_be64) matches tag,
// searching from startTime+window downward to startTime-window so that
// recent timestamps are tried first. It returns the recovered timestamp, or
// fails with KindAuthFailed if no candidate in the window matches.
func Authenticate(tag [16]byte, clientUUID [16]byte, startTime int64, window time.Duration) (uint64, error) {
	windowSecs := int64(window / time.Second)
	high := startTime + windowSecs
	low := startTime - windowSecs
	if low < 0 {
		low = 0
	}

	var msg [8]byte
	mac := hmac.New(md5.New, clientUUID[:])
	for ts := high; ts >= low; ts-- {
		binary.BigEndian.PutUint64(msg[:], uint64(ts))
		mac.Reset()
		mac.Write(msg[:])
		digest := mac.Sum(nil)
		if subtle.ConstantTimeCompare(digest, tag[:]) == 1 {
			return uint64(ts), nil
		}
	}
	return 0, vmesserrors.New(vmesserrors.KindAuthFailed, "no timestamp in window matched the authentication tag")
}
