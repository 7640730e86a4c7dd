package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Payment provider webhooks are signed with
//
//	X-Signature: t=<unix>,v1=<hex hmac-sha256 of "{t}.{rawBody}">
//
// The timestamp is part of the signed message, so a replayed body cannot be
// re-dated past the freshness window.

const Tolerance = 300 * time.Second

var (
	ErrMalformedHeader = errors.New("malformed signature header")
	ErrStaleTimestamp  = errors.New("timestamp outside tolerance")
	ErrBadSignature    = errors.New("signature mismatch")
)

func Sign(secret []byte, ts time.Time, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Header builds a complete signature header; used by the test client.
func Header(secret []byte, ts time.Time, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), Sign(secret, ts, body))
}

func Verify(secret []byte, header string, body []byte, now time.Time) error {
	var tsPart, sigPart string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return ErrMalformedHeader
		}
		switch k {
		case "t":
			tsPart = v
		case "v1":
			sigPart = v
		}
	}
	if tsPart == "" || sigPart == "" {
		return ErrMalformedHeader
	}
	unix, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return ErrMalformedHeader
	}
	ts := time.Unix(unix, 0)
	if d := now.Sub(ts); d > Tolerance || d < -Tolerance {
		return ErrStaleTimestamp
	}
	want := Sign(secret, ts, body)
	if !hmac.Equal([]byte(want), []byte(sigPart)) {
		return ErrBadSignature
	}
	return nil
}
