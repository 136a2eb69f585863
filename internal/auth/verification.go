package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultVerificationTTL is the fallback validity window for confirmation tokens.
const DefaultVerificationTTL = time.Hour

var (
	// ErrVerificationInvalid covers malformed tokens and signature mismatches.
	ErrVerificationInvalid = errors.New("verification: invalid token")
	// ErrVerificationExpired reports a token older than the validity window.
	ErrVerificationExpired = errors.New("verification: token expired")
)

// VerificationConfig bundles the configuration for a VerificationService.
type VerificationConfig struct {
	Secret string
	TTL    time.Duration
	Clock  func() time.Time
}

// VerificationService issues and checks the signed, time-limited tokens sent
// in confirmation emails. The token carries the account id and its issue
// time; the validity window is enforced at verification time rather than
// being baked into the payload.
type VerificationService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(cfg VerificationConfig) (*VerificationService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("verification: secret must be provided")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &VerificationService{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    now,
	}, nil
}

// Issue produces a tamper-evident token binding accountID and the current time.
func (s *VerificationService) Issue(accountID uint64) (string, error) {
	if accountID == 0 {
		return "", errors.New("verification: account id is required")
	}

	payload := fmt.Sprintf("%d.%d", accountID, s.now().Unix())
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + s.sign(payload), nil
}

// Verify returns the bound account id when the signature is valid and the
// token is within its validity window. Every failure mode is terminal; there
// is no partial trust in a token that fails any check.
func (s *VerificationService) Verify(token string) (uint64, error) {
	encoded, sig, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok {
		return 0, ErrVerificationInvalid
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return 0, ErrVerificationInvalid
	}
	payload := string(raw)

	if !hmac.Equal([]byte(sig), []byte(s.sign(payload))) {
		return 0, ErrVerificationInvalid
	}

	idPart, issuedPart, ok := strings.Cut(payload, ".")
	if !ok {
		return 0, ErrVerificationInvalid
	}

	accountID, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || accountID == 0 {
		return 0, ErrVerificationInvalid
	}

	issuedUnix, err := strconv.ParseInt(issuedPart, 10, 64)
	if err != nil {
		return 0, ErrVerificationInvalid
	}

	issuedAt := time.Unix(issuedUnix, 0)
	now := s.now()
	if issuedAt.After(now) {
		return 0, ErrVerificationInvalid
	}
	if now.Sub(issuedAt) > s.ttl {
		return 0, ErrVerificationExpired
	}

	return accountID, nil
}

// TokenDigest returns the hex SHA-256 of a token, the form in which the
// currently active token is stored on the account row.
func TokenDigest(token string) string {
	digest := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", digest)
}

func (s *VerificationService) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
