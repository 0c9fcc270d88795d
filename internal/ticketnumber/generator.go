// Package ticketnumber issues scan-facing ticket numbers and renders their QR payload.
//
// A number looks like TKT-M7Q2K1ZC-GEZDGNBVGY3TQ-4F7A: an uppercase prefix, the issuance
// time in base36, 64 bits of crypto/rand in base32 and a short random check segment.
package ticketnumber

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/retry"
)

const (
	// DefaultPrefix is used when no prefix is configured
	DefaultPrefix = "TKT"
	// DefaultMaxAttempts bounds the existence-checked attempts
	DefaultMaxAttempts = 5

	randomBytes     = 8
	wideRandomBytes = 16
	checkLength     = 4
)

var (
	encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

	errCollision = errors.New("ticket number collision")
)

// Store answers whether a ticket number is already taken
type Store interface {
	ExistsByNumber(ctx context.Context, number string) (bool, error)
}

// Config holds generator settings
type Config struct {
	Prefix      string
	MaxAttempts int
	// OnCollision is called for every rejected candidate
	OnCollision func()
	// OnFallback is called when the wide-entropy number is used
	OnFallback func()
}

// Generator produces ticket numbers unique against the store and the current batch
type Generator struct {
	prefix      string
	store       Store
	policy      retry.Policy
	onCollision func()
	onFallback  func()

	random io.Reader
	now    func() time.Time
}

// NewGenerator creates a Generator backed by store
func NewGenerator(cfg Config, store Store) *Generator {
	prefix := strings.ToUpper(strings.TrimSpace(cfg.Prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	return &Generator{
		prefix:      prefix,
		store:       store,
		policy:      retry.Immediate(attempts),
		onCollision: cfg.OnCollision,
		onFallback:  cfg.OnFallback,
		random:      rand.Reader,
		now:         time.Now,
	}
}

// Generate returns a number absent from the store and from taken, then adds it to taken.
// Store failures abort without accepting a candidate. When every attempt collides, a
// wide-entropy number is returned without a further check.
func (g *Generator) Generate(ctx context.Context, taken map[string]struct{}) (string, error) {
	number, err := retry.Value(ctx, g.policy, func(ctx context.Context) (string, error) {
		candidate, err := g.candidate(randomBytes)
		if err != nil {
			return "", retry.Permanent(err)
		}
		if _, dup := taken[candidate]; dup {
			g.collided()
			return "", errCollision
		}

		exists, err := g.store.ExistsByNumber(ctx, candidate)
		if err != nil {
			return "", retry.Permanent(fmt.Errorf("failed to check ticket number: %w", err))
		}
		if exists {
			g.collided()
			return "", errCollision
		}
		return candidate, nil
	})

	if err != nil {
		if !errors.Is(err, retry.ErrAttemptsExhausted) {
			return "", err
		}
		if g.onFallback != nil {
			g.onFallback()
		}
		if number, err = g.candidate(wideRandomBytes); err != nil {
			return "", err
		}
	}

	if taken != nil {
		taken[number] = struct{}{}
	}
	return number, nil
}

func (g *Generator) collided() {
	if g.onCollision != nil {
		g.onCollision()
	}
}

// candidate builds PREFIX-TIME-RANDOM-CHECK from n random bytes
func (g *Generator) candidate(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	check, err := g.checkSegment()
	if err != nil {
		return "", err
	}

	timePart := strconv.FormatInt(g.now().UnixMilli(), 36)
	return strings.ToUpper(strings.Join([]string{g.prefix, timePart, encoding.EncodeToString(buf), check}, "-")), nil
}

func (g *Generator) checkSegment() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(36), big.NewInt(checkLength), nil)
	v, err := rand.Int(g.random, limit)
	if err != nil {
		return "", fmt.Errorf("failed to read random check: %w", err)
	}
	s := strconv.FormatInt(v.Int64(), 36)
	return strings.Repeat("0", checkLength-len(s)) + s, nil
}

// Valid reports whether s has the shape of a number issued with prefix
func Valid(s, prefix string) bool {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	parts := strings.Split(s, "-")
	if len(parts) != 4 || parts[0] != strings.ToUpper(prefix) {
		return false
	}
	for _, p := range parts[1:] {
		if p == "" || strings.ToUpper(p) != p {
			return false
		}
	}
	return len(parts[3]) == checkLength
}

// Normalize trims and uppercases scanner input
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
