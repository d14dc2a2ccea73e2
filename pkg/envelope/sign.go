package envelope

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"math"
	"strings"
	"time"
)

var (
	ErrSecretMissing      = errors.New("signing secret is empty")
	ErrSignatureMalformed = errors.New("signature is not valid base64")
	ErrSignatureMismatch  = errors.New("signature mismatch")
)

type Signer struct {
	key []byte
}

func NewSigner(secret string) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretMissing
	}
	return &Signer{key: []byte(secret)}, nil
}

func (s *Signer) Sign(message string) string {
	return base64.StdEncoding.EncodeToString(s.sum(message))
}

func (s *Signer) sum(message string) []byte {
	mac := hmac.New(sha256.New, s.key)
	_, _ = mac.Write([]byte(message))
	return mac.Sum(nil)
}

// Seal fills in Signature for an envelope whose other fields are final.
func (s *Signer) Seal(e ActionEnvelope) ActionEnvelope {
	if len(e.Data) == 0 {
		e.Data = emptyObject
	}
	e.Signature = s.Sign(e.CanonicalMessage())
	return e
}

type Verifier struct {
	signer *Signer
}

func NewVerifier(secret string) (*Verifier, error) {
	s, err := NewSigner(secret)
	if err != nil {
		return nil, err
	}
	return &Verifier{signer: s}, nil
}

// Verify recomputes the MAC from the wire fields and compares in constant
// time. Only after Verify succeeds may actorEmail, actorRole and data be
// trusted.
func (v *Verifier) Verify(e ActionEnvelope) error {
	provided, err := base64.StdEncoding.DecodeString(strings.TrimSpace(e.Signature))
	if err != nil || len(provided) == 0 {
		return ErrSignatureMalformed
	}
	data, err := EncodeData(e.Data)
	if err != nil {
		return err
	}
	expected := v.signer.sum(CanonicalMessage(e.TS, e.RequestID, e.Action, e.ActorEmail, data))
	if !hmac.Equal(expected, provided) {
		return ErrSignatureMismatch
	}
	return nil
}

// Fresh reports whether ts (unix millis) is within skew of now. The
// window is computed in milliseconds and saturates at the int64 bounds.
func Fresh(ts int64, now time.Time, skew time.Duration) bool {
	if skew < 0 {
		return false
	}
	nowMs := now.UnixMilli()
	lim := skew.Milliseconds()
	lo := nowMs - lim
	if lo > nowMs {
		lo = math.MinInt64
	}
	hi := nowMs + lim
	if hi < nowMs {
		hi = math.MaxInt64
	}
	return ts >= lo && ts <= hi
}
