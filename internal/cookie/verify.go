package cookie

import (
	"crypto/hmac"
	"encoding/hex"
	"hash"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

var (
	ErrMalformed    = errors.New("malformed token")
	ErrExpired      = errors.New("token expired")
	ErrBadSignature = errors.New("bad signature")
	ErrNoToken      = errors.New("no token")
)

// Verifier checks tokens produced by HMACMaker with the same key and name.
type Verifier struct {
	key  []byte
	name string
	hash func() hash.Hash
	now  func() time.Time
}

func NewVerifier(key []byte, name string, opts ...Option) *Verifier {
	o := buildOptions(opts)
	return &Verifier{
		key:  append([]byte(nil), key...),
		name: name,
		hash: o.hash,
		now:  o.now,
	}
}

// Verify token and return its secondary id.
func (v *Verifier) Verify(token string) (string, error) {
	rest, ok := strings.CutPrefix(token, v.name)
	if !ok {
		return "", errors.Wrap(ErrMalformed, "name mismatch")
	}
	var secondaryID, value string
	switch {
	case strings.HasPrefix(rest, "="):
		value = rest[1:]
	case strings.HasPrefix(rest, "-"):
		idx := strings.LastIndexByte(rest, '=')
		if idx < 0 {
			return "", errors.Wrap(ErrMalformed, "no value")
		}
		secondaryID, value = rest[1:idx], rest[idx+1:]
		if secondaryID == "" {
			return "", errors.Wrap(ErrMalformed, "empty secondary id")
		}
	default:
		return "", errors.Wrap(ErrMalformed, "name mismatch")
	}

	expiry, digest, ok := strings.Cut(value, "-")
	if !ok {
		return "", errors.Wrap(ErrMalformed, "no digest")
	}
	expiresAt, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return "", errors.Wrap(ErrMalformed, "expiry")
	}
	got, err := hex.DecodeString(digest)
	if err != nil {
		return "", errors.Wrap(ErrMalformed, "digest")
	}
	want, _ := hex.DecodeString(sign(v.hash, v.key, message(secondaryID, expiry)))
	if !hmac.Equal(got, want) {
		return "", ErrBadSignature
	}
	if expiresAt < v.now().Unix() {
		return "", ErrExpired
	}

	return secondaryID, nil
}

// FromHeader finds token with verifier's name in Cookie header value
// and verifies it.
func (v *Verifier) FromHeader(header string) (string, error) {
	var lastErr error = ErrNoToken
	for _, part := range strings.Split(header, ";") {
		token := strings.TrimSpace(part)
		if !strings.HasPrefix(token, v.name) {
			continue
		}
		id, err := v.Verify(token)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}
	return "", lastErr
}
