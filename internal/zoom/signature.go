package zoom

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"liveacademy/pkg/types"
)

// Signer issues Meeting SDK join tokens
type Signer struct {
	appKey string
	secret string
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer; ttl is the exp-iat window
func NewSigner(appKey, secret string, ttl time.Duration) *Signer {
	return &Signer{appKey: appKey, secret: secret, ttl: ttl, now: time.Now}
}

// SetClock replaces the time source
func (s *Signer) SetClock(now func() time.Time) { s.now = now }

func (s *Signer) AppKey() string { return s.appKey }
func (s *Signer) KeyLoaded() bool { return s.appKey != "" }
func (s *Signer) SecretLoaded() bool { return s.secret != "" }
func (s *Signer) Configured() bool { return s.KeyLoaded() && s.SecretLoaded() }
func (s *Signer) TTL() time.Duration { return s.ttl }

// Sign returns an HS256 JWT over {appKey, iat, exp, mn, role}
func (s *Signer) Sign(meetingNumber string, role int) (string, error) {
	if !s.Configured() {
		return "", ErrMissingSigningKey
	}
	if !types.IsValidMeetingRole(role) {
		return "", ErrInvalidRole
	}

	iat := s.now().Unix()
	claims := jwt.MapClaims{
		"appKey": s.appKey,
		"iat":    iat,
		"exp":    iat + int64(s.ttl/time.Second),
		"mn":     meetingNumber,
		"role":   role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
}
