package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TransferRefPrefix    = "TRF"
	TransactionRefPrefix = "TXN"
	BillRefPrefix        = "BILL"
)

// IDGenerator produces identifiers and external references for new entities.
type IDGenerator interface {
	NewID() uuid.UUID
	NewReference(prefix string) string
	NewAccountNumber() string
}

// RandomIDGenerator is the production generator.
type RandomIDGenerator struct {
	Now func() time.Time
}

func NewRandomIDGenerator() *RandomIDGenerator {
	return &RandomIDGenerator{Now: time.Now}
}

func (g *RandomIDGenerator) NewID() uuid.UUID {
	return uuid.New()
}

// NewReference returns prefix + unix seconds + 8 hex characters of a random UUID,
// e.g. TRF1734431400A1B2C3D4.
func (g *RandomIDGenerator) NewReference(prefix string) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s%d%s", prefix, now().Unix(), suffix)
}

// NewAccountNumber returns 14 random digits without a leading zero.
// Uniqueness is enforced by storage.
func (g *RandomIDGenerator) NewAccountNumber() string {
	lo := big.NewInt(10000000000000)
	span := big.NewInt(90000000000000)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		n = big.NewInt(time.Now().UnixNano() % span.Int64())
	}
	return n.Add(n, lo).String()
}

// SequentialIDGenerator yields predictable values; safe for concurrent use.
type SequentialIDGenerator struct {
	mu      sync.Mutex
	counter uint64
}

func (g *SequentialIDGenerator) next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return g.counter
}

func (g *SequentialIDGenerator) NewID() uuid.UUID {
	var id uuid.UUID
	n := g.next()
	for i := 0; i < 8; i++ {
		id[15-i] = byte(n >> (8 * i))
	}
	return id
}

func (g *SequentialIDGenerator) NewReference(prefix string) string {
	return fmt.Sprintf("%s%012d", prefix, g.next())
}

func (g *SequentialIDGenerator) NewAccountNumber() string {
	return fmt.Sprintf("%014d", 10000000000000+g.next())
}
