// Package cookie implements signed, time-expiring authentication tokens
// sent as Cookie header with range requests.
package cookie

import (
	"crypto/hmac"
	"crypto/md5" // #nosec G501
	"encoding/hex"
	"hash"
	"strconv"
	"time"
)

// Maker produces authentication token for a request.
type Maker interface {
	Make(secondaryID string) string
}

var _ Maker = (*HMACMaker)(nil)

// HMACMaker produces HMAC-signed tokens of form
//
//	name=expiry-digest
//	name-secondaryID=expiry-digest
//
// where expiry is unix time in seconds and digest is hex HMAC of
// "expiry" or "secondaryID-expiry".
//
// HMACMaker is immutable and safe for concurrent use.
type HMACMaker struct {
	key      []byte
	name     string
	duration time.Duration
	hash     func() hash.Hash
	now      func() time.Time
}

type options struct {
	hash func() hash.Hash
	now  func() time.Time
}

// Option configures HMACMaker and Verifier.
type Option func(o *options)

// WithHash sets hash function of HMAC, MD5 by default.
func WithHash(h func() hash.Hash) Option {
	return func(o *options) { o.hash = h }
}

// WithClock sets time source, time.Now by default.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		hash: md5.New,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewHMACMaker creates HMACMaker with tokens valid for duration.
func NewHMACMaker(key []byte, name string, duration time.Duration, opts ...Option) *HMACMaker {
	o := buildOptions(opts)
	return &HMACMaker{
		key:      append([]byte(nil), key...),
		name:     name,
		duration: duration,
		hash:     o.hash,
		now:      o.now,
	}
}

// Name of the cookie.
func (m *HMACMaker) Name() string { return m.name }

// Make token for secondaryID, which may be empty.
//
// Expiry has second granularity, so tokens made within the same second
// are identical.
func (m *HMACMaker) Make(secondaryID string) string {
	expiry := strconv.FormatInt(m.now().Add(m.duration).Unix(), 10)
	digest := sign(m.hash, m.key, message(secondaryID, expiry))
	if secondaryID != "" {
		return m.name + "-" + secondaryID + "=" + expiry + "-" + digest
	}
	return m.name + "=" + expiry + "-" + digest
}

func message(secondaryID, expiry string) string {
	if secondaryID != "" {
		return secondaryID + "-" + expiry
	}
	return expiry
}

func sign(h func() hash.Hash, key []byte, msg string) string {
	mac := hmac.New(h, key)
	_, _ = mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
