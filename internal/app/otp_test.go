package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sobs/banking-core/internal/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestMemoryOTPAuthenticator(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryOTPAuthenticator(time.Minute, 2)

	code, err := m.IssueOTP(ctx, "TRF1")
	if err != nil {
		t.Fatalf("IssueOTP returned error: %v", err)
	}
	if !validCodeShape(code) {
		t.Fatalf("expected a 6-digit code, got %q", code)
	}
	if ok, err := m.VerifyOTP(ctx, "TRF1", wrongCode(code)); ok || err != nil {
		t.Fatalf("expected wrong code to be rejected without error, got %v %v", ok, err)
	}
	if ok, err := m.VerifyOTP(ctx, "TRF1", code); !ok || err != nil {
		t.Fatalf("expected correct code to verify, got %v %v", ok, err)
	}
	// Verified but not consumed: the same code still works, and the wrong guess
	// before it no longer counts.
	for i := 0; i < 3; i++ {
		if ok, err := m.VerifyOTP(ctx, "TRF1", code); !ok || err != nil {
			t.Fatalf("retry %d: expected correct code to verify again, got %v %v", i+1, ok, err)
		}
	}
	if err := m.ConsumeOTP(ctx, "TRF1"); err != nil {
		t.Fatalf("ConsumeOTP returned error: %v", err)
	}
	if _, err := m.VerifyOTP(ctx, "TRF1", code); !errors.Is(err, domain.ErrOTPExpired) {
		t.Fatalf("expected a consumed code to be gone, got %v", err)
	}
}

func TestMemoryOTPAuthenticatorAttemptsAndExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryOTPAuthenticator(time.Minute, 2)
	clock := &testClock{now: time.Date(2025, 12, 16, 10, 0, 0, 0, time.UTC)}
	m.now = clock.Now

	code, _ := m.IssueOTP(ctx, "TRF1")
	for i := 0; i < 2; i++ {
		if ok, err := m.VerifyOTP(ctx, "TRF1", "12ab"); ok || err != nil {
			t.Fatalf("attempt %d: expected plain rejection, got %v %v", i+1, ok, err)
		}
	}
	if _, err := m.VerifyOTP(ctx, "TRF1", code); !errors.Is(err, domain.ErrOTPAttemptsExceeded) {
		t.Fatalf("expected ErrOTPAttemptsExceeded, got %v", err)
	}

	code, _ = m.IssueOTP(ctx, "TRF2")
	clock.Advance(time.Minute)
	if _, err := m.VerifyOTP(ctx, "TRF2", code); !errors.Is(err, domain.ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired, got %v", err)
	}
	if _, err := m.VerifyOTP(ctx, "never-issued", "123456"); !errors.Is(err, domain.ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired for unknown subject, got %v", err)
	}
}

func startRedis(t *testing.T, ctx context.Context) *redis.Client {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("failed to get redis port: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisOTPAuthenticatorIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	client := startRedis(t, ctx)
	r := NewRedisOTPAuthenticator(client, "test:otp:", time.Minute, 2)
	r.cost = 4

	code, err := r.IssueOTP(ctx, "TRF1")
	if err != nil {
		t.Fatalf("IssueOTP returned error: %v", err)
	}
	if ttl := client.TTL(ctx, "test:otp:code:TRF1").Val(); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected code key to expire within a minute, ttl=%v", ttl)
	}
	if ok, err := r.VerifyOTP(ctx, "TRF1", wrongCode(code)); ok || err != nil {
		t.Fatalf("expected wrong code to be rejected, got %v %v", ok, err)
	}
	if ok, err := r.VerifyOTP(ctx, "TRF1", code); !ok || err != nil {
		t.Fatalf("expected correct code to verify, got %v %v", ok, err)
	}
	if ok, err := r.VerifyOTP(ctx, "TRF1", code); !ok || err != nil {
		t.Fatalf("expected unconsumed code to verify again, got %v %v", ok, err)
	}
	if err := r.ConsumeOTP(ctx, "TRF1"); err != nil {
		t.Fatalf("ConsumeOTP returned error: %v", err)
	}
	if _, err := r.VerifyOTP(ctx, "TRF1", code); !errors.Is(err, domain.ErrOTPExpired) {
		t.Fatalf("expected consumed code to be gone, got %v", err)
	}

	code, _ = r.IssueOTP(ctx, "TRF2")
	for i := 0; i < 2; i++ {
		_, _ = r.VerifyOTP(ctx, "TRF2", wrongCode(code))
	}
	if _, err := r.VerifyOTP(ctx, "TRF2", code); !errors.Is(err, domain.ErrOTPAttemptsExceeded) {
		t.Fatalf("expected ErrOTPAttemptsExceeded, got %v", err)
	}

	// A reissued code resets the attempt budget.
	code, _ = r.IssueOTP(ctx, "TRF2")
	if ok, err := r.VerifyOTP(ctx, "TRF2", code); !ok || err != nil {
		t.Fatalf("expected reissued code to verify, got %v %v", ok, err)
	}
}
