// Package expressions compiles and evaluates gateway conditions. Three
// dialects are supported: CEL (default), Expr and jq. Compiled programs are
// cached per engine and reused across goroutines.
package expressions

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Dialect names a condition language.
type Dialect string

const (
	DialectCEL  Dialect = "cel"
	DialectExpr Dialect = "expr"
	DialectJQ   Dialect = "jq"
)

// Dialects lists the supported dialects.
var Dialects = []Dialect{DialectCEL, DialectExpr, DialectJQ}

// Engine checks and evaluates condition expressions.
type Engine interface {
	Name() string
	// Check compiles expression without running it.
	Check(expression string) error
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// New returns the engine for a dialect. Empty means CEL.
func New(dialect string) (Engine, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(dialect))) {
	case "", DialectCEL:
		return NewCELEngine()
	case DialectExpr:
		return NewExprEngine(), nil
	case DialectJQ:
		return NewGoJQEngine(), nil
	default:
		return nil, fmt.Errorf("unknown condition dialect %q", dialect)
	}
}

// programCache memoizes compiled programs by source text.
type programCache[P any] struct {
	mu    sync.RWMutex
	progs map[string]P
}

func newProgramCache[P any]() *programCache[P] {
	return &programCache[P]{progs: make(map[string]P)}
}

// get returns the cached program for src or compiles and stores it.
func (c *programCache[P]) get(src string, compile func(string) (P, error)) (P, error) {
	c.mu.RLock()
	if p, ok := c.progs[src]; ok {
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock.
	if p, ok := c.progs[src]; ok {
		return p, nil
	}
	p, err := compile(src)
	if err != nil {
		var zero P
		return zero, err
	}
	c.progs[src] = p
	return p, nil
}

func (c *programCache[P]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.progs)
}
