/**
 * @description
 * One-time passwords for high-value transfers. A 6-digit code is issued per subject
 * (the transfer reference), stored only as a bcrypt hash, expires after a TTL and
 * tolerates a bounded number of wrong guesses. A correct code stays valid until the
 * caller consumes it, so a failed settlement can be retried with the same code.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: shared code storage and attempt counting.
 * - golang.org/x/crypto/bcrypt: code hashing.
 */

package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sobs/banking-core/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpDigits          = 6
	DefaultOTPTTL      = 5 * time.Minute
	DefaultOTPAttempts = 5
)

// OTPAuthenticator issues and checks one-time passwords.
//
// VerifyOTP returns (false, nil) for a wrong code that may be retried,
// domain.ErrOTPExpired when no live code exists, and domain.ErrOTPAttemptsExceeded
// once the attempt budget is spent. A correct code resets the attempt counter but is
// not removed; ConsumeOTP removes it once the guarded operation has committed.
type OTPAuthenticator interface {
	IssueOTP(ctx context.Context, subject string) (string, error)
	VerifyOTP(ctx context.Context, subject, code string) (bool, error)
	ConsumeOTP(ctx context.Context, subject string) error
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

func validCodeShape(code string) bool {
	if len(code) != otpDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

var otpAttemptScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisOTPAuthenticator shares codes across instances through Redis.
type RedisOTPAuthenticator struct {
	client      redis.UniversalClient
	prefix      string
	ttl         time.Duration
	maxAttempts int
	cost        int
}

func NewRedisOTPAuthenticator(client redis.UniversalClient, prefix string, ttl time.Duration, maxAttempts int) *RedisOTPAuthenticator {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "sobs:otp"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultOTPAttempts
	}
	return &RedisOTPAuthenticator{
		client:      client,
		prefix:      trimmedPrefix,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		cost:        bcrypt.DefaultCost,
	}
}

func (r *RedisOTPAuthenticator) codeKey(subject string) string {
	return fmt.Sprintf("%s:code:%s", r.prefix, subject)
}

func (r *RedisOTPAuthenticator) attemptsKey(subject string) string {
	return fmt.Sprintf("%s:attempts:%s", r.prefix, subject)
}

// IssueOTP replaces any previous code for subject and resets its attempt counter.
func (r *RedisOTPAuthenticator) IssueOTP(ctx context.Context, subject string) (string, error) {
	code, err := generateOTPCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), r.cost)
	if err != nil {
		return "", err
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.codeKey(subject), hash, r.ttl)
	pipe.Del(ctx, r.attemptsKey(subject))
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("%w: store otp: %w", domain.ErrStorageFailure, err)
	}
	return code, nil
}

func (r *RedisOTPAuthenticator) VerifyOTP(ctx context.Context, subject, code string) (bool, error) {
	attempts, err := otpAttemptScript.Run(ctx, r.client, []string{r.attemptsKey(subject)}, r.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: count otp attempt: %w", domain.ErrStorageFailure, err)
	}
	if attempts > int64(r.maxAttempts) {
		r.client.Del(ctx, r.codeKey(subject))
		return false, domain.ErrOTPAttemptsExceeded
	}

	hash, err := r.client.Get(ctx, r.codeKey(subject)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, domain.ErrOTPExpired
	}
	if err != nil {
		return false, fmt.Errorf("%w: load otp: %w", domain.ErrStorageFailure, err)
	}
	if !validCodeShape(code) || bcrypt.CompareHashAndPassword(hash, []byte(code)) != nil {
		return false, nil
	}
	if err := r.client.Del(ctx, r.attemptsKey(subject)).Err(); err != nil {
		return false, fmt.Errorf("%w: reset otp attempts: %w", domain.ErrStorageFailure, err)
	}
	return true, nil
}

func (r *RedisOTPAuthenticator) ConsumeOTP(ctx context.Context, subject string) error {
	if err := r.client.Del(ctx, r.codeKey(subject), r.attemptsKey(subject)).Err(); err != nil {
		return fmt.Errorf("%w: consume otp: %w", domain.ErrStorageFailure, err)
	}
	return nil
}

type memoryOTP struct {
	hash      []byte
	expiresAt time.Time
	attempts  int
}

// MemoryOTPAuthenticator keeps codes in process. Used when Redis is not configured.
type MemoryOTPAuthenticator struct {
	mu          sync.Mutex
	codes       map[string]*memoryOTP
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewMemoryOTPAuthenticator(ttl time.Duration, maxAttempts int) *MemoryOTPAuthenticator {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultOTPAttempts
	}
	return &MemoryOTPAuthenticator{
		codes:       make(map[string]*memoryOTP),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (m *MemoryOTPAuthenticator) IssueOTP(ctx context.Context, subject string) (string, error) {
	code, err := generateOTPCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[subject] = &memoryOTP{hash: hash, expiresAt: m.now().Add(m.ttl)}
	return code, nil
}

func (m *MemoryOTPAuthenticator) VerifyOTP(ctx context.Context, subject, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.codes[subject]
	if !ok || !m.now().Before(entry.expiresAt) {
		delete(m.codes, subject)
		return false, domain.ErrOTPExpired
	}
	entry.attempts++
	if entry.attempts > m.maxAttempts {
		delete(m.codes, subject)
		return false, domain.ErrOTPAttemptsExceeded
	}
	if !validCodeShape(code) || bcrypt.CompareHashAndPassword(entry.hash, []byte(code)) != nil {
		return false, nil
	}
	entry.attempts = 0
	return true, nil
}

func (m *MemoryOTPAuthenticator) ConsumeOTP(ctx context.Context, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, subject)
	return nil
}
