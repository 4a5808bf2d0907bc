package objectstore

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// AudioPathPrefix is the route under which signed objects are served.
const AudioPathPrefix = "/v1/audio/"

var (
	// ErrExpired is returned for a signed URL past its expiry.
	ErrExpired = errors.New("signed url expired")
	// ErrBadSignature is returned for a tampered or foreign signature.
	ErrBadSignature = errors.New("invalid signature")
)

// Signer mints and checks URLs for objects served by this daemon.
type Signer struct {
	baseURL string
	secret  []byte
	now     func() time.Time
}

// NewSigner returns a signer for URLs rooted at baseURL. An empty secret is
// replaced by a random one, so URLs do not survive a restart.
func NewSigner(baseURL, secret string) (*Signer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating signing secret: %w", err)
		}
	}
	return &Signer{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  key,
		now:     time.Now,
	}, nil
}

// Sign returns {base}/v1/audio/{key}?exp={unix}&sig={hex}.
func (s *Signer) Sign(key string, ttl time.Duration) string {
	exp := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)
	q := url.Values{}
	q.Set("exp", exp)
	q.Set("sig", s.mac(key, exp))
	return s.baseURL + AudioPathPrefix + escapeKey(key) + "?" + q.Encode()
}

// Verify checks a key against the exp and sig query values of a signed URL.
func (s *Signer) Verify(key, exp, sig string) error {
	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	want := s.mac(key, exp)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrBadSignature
	}
	if s.now().Unix() > unix {
		return ErrExpired
	}
	return nil
}

func (s *Signer) mac(key, exp string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(key))
	h.Write([]byte{'\n'})
	h.Write([]byte(exp))
	return hex.EncodeToString(h.Sum(nil))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
