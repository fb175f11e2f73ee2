package service

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/medicore/medicore-api/internal/domain"
)

// DefaultOTPTTL is how long an issued code stays valid.
const DefaultOTPTTL = 10 * time.Minute

// OTPPurpose selects how a code is stored and compared.
type OTPPurpose int

const (
	// OTPSignup codes are stored as issued and compared directly.
	OTPSignup OTPPurpose = iota
	// OTPReset codes are stored as a bcrypt hash.
	OTPReset
)

func (p OTPPurpose) String() string {
	switch p {
	case OTPSignup:
		return "signup"
	case OTPReset:
		return "reset"
	default:
		return "unknown"
	}
}

// OTPEngine generates, stores and checks six digit one-time codes.
type OTPEngine struct {
	hasher *PasswordHasher
	ttl    time.Duration
	now    func() time.Time
}

// NewOTPEngine creates an OTPEngine. A nil now uses time.Now.
func NewOTPEngine(hasher *PasswordHasher, ttl time.Duration, now func() time.Time) *OTPEngine {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	return &OTPEngine{hasher: hasher, ttl: ttl, now: now}
}

// TTL returns how long issued codes remain valid.
func (e *OTPEngine) TTL() time.Duration {
	return e.ttl
}

// Generate returns a code drawn uniformly from 100000-999999.
func (e *OTPEngine) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Issue creates a fresh code for purpose. It returns the code to deliver and
// the value to persist on the user.
func (e *OTPEngine) Issue(purpose OTPPurpose) (code string, stored domain.OTP, err error) {
	code, err = e.Generate()
	if err != nil {
		return "", domain.OTP{}, err
	}

	stored = domain.OTP{Code: code, ExpiresAt: e.now().Add(e.ttl).UTC()}
	if purpose == OTPReset {
		hash, err := e.hasher.Hash(code)
		if err != nil {
			return "", domain.OTP{}, fmt.Errorf("hash otp: %w", err)
		}
		stored.Code = hash
	}
	return code, stored, nil
}

// Validate checks supplied against the code pending on user. Expiry is
// checked before the comparison.
func (e *OTPEngine) Validate(user *domain.User, supplied string, purpose OTPPurpose) error {
	if !user.HasPendingOTP() {
		return domain.ErrNoOTPPending
	}
	if !e.now().Before(*user.OTPExpiresAt) {
		return domain.ErrOTPExpired
	}

	var ok bool
	switch purpose {
	case OTPReset:
		ok = e.hasher.Verify(supplied, user.OTPCode)
	default:
		ok = subtle.ConstantTimeCompare([]byte(supplied), []byte(user.OTPCode)) == 1
	}
	if !ok {
		return domain.ErrInvalidCode
	}
	return nil
}

// Clear returns the update that removes any pending code.
func (e *OTPEngine) Clear() domain.UserUpdate {
	return domain.UserUpdate{ClearOTP: true}
}
