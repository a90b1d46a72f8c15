package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// captureSender remembers the last code per address.
type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
	sends int
	err   error
}

func newCaptureSender() *captureSender {
	return &captureSender{codes: make(map[string]string)}
}

func (c *captureSender) Send(_ context.Context, to Destination, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sends++
	c.codes[to.Address] = code
	return nil
}

func (c *captureSender) last(address string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[address]
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// scriptedGenerator hands out codes in order, then repeats the last one.
type scriptedGenerator struct {
	mu     sync.Mutex
	codes  []string
	tokens int
}

func (g *scriptedGenerator) Code() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.codes) == 0 {
		return "", errors.New("no codes left")
	}
	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return code, nil
}

func (g *scriptedGenerator) VerificationToken() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens++
	return "vt-" + strings.Repeat("x", g.tokens), nil
}
