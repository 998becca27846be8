// Package verification implements the SMS code lifecycle for checkout:
// issuing rate-limited single-use codes and verifying submissions against
// them.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"backend/internal/models"
	"backend/internal/phone"
	"backend/internal/ratelimit"
	"backend/internal/sms"
)

// StateStore persists per-phone verification state. Consume and
// RegisterFailure must be atomic at the storage layer: Consume removes the
// state only if code, expiry and attempts still match, so two concurrent
// submissions of the same correct code yield exactly one winner.
type StateStore interface {
	Replace(ctx context.Context, st *models.VerificationState) error
	// Get returns (nil, nil) when no state exists for the phone.
	Get(ctx context.Context, phoneNumber string) (*models.VerificationState, error)
	// Consume returns (nil, nil) when no matching live state was found.
	Consume(ctx context.Context, phoneNumber, codeHash string, now time.Time) (*models.VerificationState, error)
	// RegisterFailure decrements attempts for the code issued at issuedAt and
	// returns the remaining count; returns 0 when the state is gone or the
	// code was superseded.
	RegisterFailure(ctx context.Context, phoneNumber string, issuedAt time.Time) (int, error)
}

// CustomerStore resolves phone identities. EnsureByPhone creates the customer
// on first verification and commits the staged display name only if the
// customer has none yet.
type CustomerStore interface {
	EnsureByPhone(ctx context.Context, phoneNumber, stagedName string) (*models.Customer, error)
}

// Config carries the tunable thresholds; zero values are replaced by the
// defaults from internal/config at wiring time.
type Config struct {
	CodeTTL         time.Duration
	CodeLength      int
	MaxAttempts     int
	PhoneDailyLimit int
	IPHourlyLimit   int
}

// Service drives the issue/verify cycle.
type Service struct {
	states    StateStore
	customers CustomerStore
	limiter   *ratelimit.Limiter
	sender    sms.Sender
	cfg       Config

	now     func() time.Time
	newCode func(length int) (string, error)
}

func NewService(states StateStore, customers CustomerStore, limiter *ratelimit.Limiter, sender sms.Sender, cfg Config) *Service {
	return &Service{
		states:    states,
		customers: customers,
		limiter:   limiter,
		sender:    sender,
		cfg:       cfg,
		now:       time.Now,
		newCode:   randomCode,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithCodeSource overrides code generation. Tests only.
func (s *Service) WithCodeSource(fn func(length int) (string, error)) *Service {
	s.newCode = fn
	return s
}

// IssueCode validates the phone, consumes both rate-limit scopes, writes a
// fresh verification state superseding any previous code, and hands the code
// to the SMS collaborator. A failed delivery still counts against the quota,
// otherwise a flaky carrier would grant unlimited resend attempts.
func (s *Service) IssueCode(ctx context.Context, rawPhone, displayName, clientIP string) (time.Duration, error) {
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		// Format rejection happens before any quota is touched.
		return 0, err
	}

	phoneDec, err := s.limiter.Allow(ctx, "sms:phone:"+normalized, s.cfg.PhoneDailyLimit, 24*time.Hour)
	if err != nil {
		return 0, err
	}
	if !phoneDec.Allowed {
		return 0, &RateLimitedError{RetryAfter: phoneDec.RetryAfter}
	}

	ipDec, err := s.limiter.Allow(ctx, "sms:ip:"+clientIP, s.cfg.IPHourlyLimit, time.Hour)
	if err != nil {
		return 0, err
	}
	if !ipDec.Allowed {
		return 0, &RateLimitedError{RetryAfter: ipDec.RetryAfter}
	}

	code, err := s.newCode(s.cfg.CodeLength)
	if err != nil {
		return 0, fmt.Errorf("generate code: %w", err)
	}

	now := s.now()
	state := &models.VerificationState{
		Phone:             normalized,
		CodeHash:          hashCode(code),
		IssuedAt:          now,
		ExpiresAt:         now.Add(s.cfg.CodeTTL),
		AttemptsRemaining: s.cfg.MaxAttempts,
		StagedName:        strings.TrimSpace(displayName),
		PurgeAt:           now.Add(24 * time.Hour),
	}
	if err := s.states.Replace(ctx, state); err != nil {
		return 0, fmt.Errorf("store verification state: %w", err)
	}

	message := fmt.Sprintf("Codul tau de verificare este %s. Expira in %d minute.", code, int(s.cfg.CodeTTL.Minutes()))
	if err := s.sender.Send(ctx, normalized, message); err != nil {
		log.Println("[VERIFY] [ERROR] sms delivery failed:", err)
		return 0, ErrDeliveryFailed
	}

	log.Println("[VERIFY] [INFO] code issued for:", phone.Mask(normalized))
	return s.cfg.CodeTTL, nil
}

// VerifyCode checks a submitted code against the live state for the phone.
// On match the state is consumed atomically (single-use), the customer record
// is created or loaded, and any staged display name is committed.
func (s *Service) VerifyCode(ctx context.Context, rawPhone, submittedCode string) (*models.Customer, error) {
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}

	state, err := s.states.Get(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("load verification state: %w", err)
	}
	if state == nil {
		return nil, ErrNoActiveCode
	}

	now := s.now()
	if !now.Before(state.ExpiresAt) {
		return nil, ErrCodeExpired
	}
	if state.AttemptsRemaining <= 0 {
		// Lockout holds until a fresh code overwrites the state.
		return nil, ErrTooManyAttempts
	}

	submitted := strings.TrimSpace(submittedCode)
	if hashCode(submitted) != state.CodeHash {
		remaining, err := s.states.RegisterFailure(ctx, normalized, state.IssuedAt)
		if err != nil {
			return nil, fmt.Errorf("register failed attempt: %w", err)
		}
		return nil, &MismatchError{AttemptsRemaining: remaining}
	}

	consumed, err := s.states.Consume(ctx, normalized, state.CodeHash, now)
	if err != nil {
		return nil, fmt.Errorf("consume verification state: %w", err)
	}
	if consumed == nil {
		// Lost the race against a concurrent submission or a supersede.
		return nil, ErrNoActiveCode
	}

	customer, err := s.customers.EnsureByPhone(ctx, normalized, consumed.StagedName)
	if err != nil {
		return nil, fmt.Errorf("resolve customer: %w", err)
	}

	log.Println("[VERIFY] [INFO] phone verified:", phone.Mask(normalized))
	return customer, nil
}

func randomCode(length int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
