// Package ordernumber builds human-readable order numbers of the form
// PREFIX-YYYYMMDD-XXXXXX.
package ordernumber

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const DefaultMaxAttempts = 10

var ErrExhausted = errors.New("order number: no unique candidate found")

// ExistsFunc reports whether a candidate is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

type Generator struct {
	prefix      string
	maxAttempts int
	now         func() time.Time
	random      func() (string, error)
}

func New(prefix string) *Generator {
	return &Generator{
		prefix:      strings.ToUpper(prefix),
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		random:      randomSuffix,
	}
}

// Next returns the first candidate exists reports as free. On collision it
// appends -1, -2, ... to the base candidate and gives up after maxAttempts checks.
func (g *Generator) Next(ctx context.Context, exists ExistsFunc) (string, error) {
	suffix, err := g.random()
	if err != nil {
		return "", fmt.Errorf("order number random: %w", err)
	}
	base := fmt.Sprintf("%s-%s-%s", g.prefix, g.now().Format("20060102"), suffix)

	candidate := base
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("order number lookup: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
	return "", fmt.Errorf("%w after %d attempts (base %s)", ErrExhausted, g.maxAttempts, base)
}

func randomSuffix() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
