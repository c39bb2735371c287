package token

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Phase scopes a token to one half of the attendance window.
type Phase string

const (
	PhaseStart Phase = "START"
	PhaseEnd   Phase = "END"
)

// Valid reports whether p is one of the two known phases.
func (p Phase) Valid() bool { return p == PhaseStart || p == PhaseEnd }

// Verification errors. Handlers map these onto the wire error codes.
var (
	ErrMalformed        = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
)

// Anchor is the session location snapshot carried alongside an issued token
// so the QR can be rendered with context. It is not part of the signed form;
// the scan path reads the authoritative anchor from the session record.
type Anchor struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Radius float64 `json:"radius"`
}

// Payload is the ephemeral content of a scan token. It carries no attendee
// identity; identity comes from the authenticated scan request.
type Payload struct {
	SessionID string    `json:"sessionId"`
	Phase     Phase     `json:"phase"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Anchor    Anchor    `json:"anchor"`
}

// Issued is a signed token ready for transport.
type Issued struct {
	Payload   Payload `json:"payload"`
	Canonical string  `json:"canonical"`
	Signature string  `json:"signature"`
	Token     string  `json:"token"`
}

// Result is a successful verification outcome.
type Result struct {
	SessionID string
	Phase     Phase
	ExpiresAt time.Time
	// Replayed is true when this exact signature was already consumed within
	// the replay window. Verification still succeeds; the attendance record's
	// own state machine rejects the second business-level scan.
	Replayed bool
}

// Service signs and verifies scan tokens with a server-held HMAC secret.
type Service struct {
	secret []byte
	replay ReplayCache
}

// NewService creates a token service. The secret must never be logged or
// embedded in a token.
func NewService(secret string, replay ReplayCache) *Service {
	return &Service{secret: []byte(secret), replay: replay}
}

// Sign produces the canonical encoding and its HMAC-SHA256 signature.
//
// The canonical form is `sessionId|phase|expiresAtEpochSeconds` and the wire
// token appends `|signature` (URL-safe base64, no padding). The fixed field
// order is the frozen wire contract; changing it breaks every issued token.
func (s *Service) Sign(p Payload) (Issued, error) {
	if p.SessionID == "" || strings.ContainsRune(p.SessionID, '|') {
		return Issued{}, ErrMalformed
	}
	if !p.Phase.Valid() {
		return Issued{}, ErrMalformed
	}
	canonical := canonicalEncoding(p.SessionID, p.Phase, p.ExpiresAt.Unix())
	sig := s.signature(canonical)
	return Issued{
		Payload:   p,
		Canonical: canonical,
		Signature: sig,
		Token:     canonical + "|" + sig,
	}, nil
}

// Verify checks a wire token: structure, signature (constant time), expiry,
// then replay. A replayed signature is reported via Result.Replayed rather
// than an error so idempotent re-delivery stays tolerable for callers.
func (s *Service) Verify(ctx context.Context, tok string, now time.Time) (Result, error) {
	parts := strings.Split(tok, "|")
	if len(parts) != 4 {
		return Result{}, ErrMalformed
	}
	sessionID, phaseRaw, expRaw, sigRaw := parts[0], parts[1], parts[2], parts[3]
	if sessionID == "" {
		return Result{}, ErrMalformed
	}
	phase := Phase(phaseRaw)
	if !phase.Valid() {
		return Result{}, ErrMalformed
	}
	expUnix, err := strconv.ParseInt(expRaw, 10, 64)
	if err != nil {
		return Result{}, ErrMalformed
	}

	expected := s.signature(canonicalEncoding(sessionID, phase, expUnix))
	supplied, err := base64.RawURLEncoding.DecodeString(sigRaw)
	if err != nil {
		return Result{}, ErrInvalidSignature
	}
	expectedRaw, _ := base64.RawURLEncoding.DecodeString(expected)
	if !hmac.Equal(expectedRaw, supplied) {
		return Result{}, ErrInvalidSignature
	}

	expiresAt := time.Unix(expUnix, 0)
	if now.After(expiresAt) {
		return Result{}, ErrExpired
	}

	replayed, err := s.replay.Seen(ctx, sigRaw)
	if err != nil {
		return Result{}, err
	}

	return Result{
		SessionID: sessionID,
		Phase:     phase,
		ExpiresAt: expiresAt,
		Replayed:  replayed,
	}, nil
}

func canonicalEncoding(sessionID string, phase Phase, expUnix int64) string {
	return sessionID + "|" + string(phase) + "|" + strconv.FormatInt(expUnix, 10)
}

func (s *Service) signature(canonical string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonical))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
