package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/use-agent/prowl/engine"
	"github.com/use-agent/prowl/stealth"
)

// fakePage is a minimal in-memory page for orchestrator tests.
type fakePage struct {
	status int
	body   string
}

func (p *fakePage) Status() int  { return p.status }
func (p *fakePage) Body() string { return p.body }
func (p *fakePage) Text() string { return p.body }
func (p *fakePage) First(string) (engine.Element, error) {
	return nil, nil
}
func (p *fakePage) All(string) ([]engine.Element, error) {
	return nil, nil
}

// fetchStep scripts one Fetch outcome.
type fetchStep struct {
	body string
	err  error
}

// fakeEngine scripts session creation and fetches, recording the proxy
// each session was opened with.
type fakeEngine struct {
	mu sync.Mutex

	steps []fetchStep
	calls int

	sessionsOpened int
	sessionsClosed int
	proxiesUsed    []string

	newSessionErr error
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) NewSession(_ context.Context, profile *stealth.Profile) (engine.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.newSessionErr != nil {
		return nil, e.newSessionErr
	}
	e.sessionsOpened++
	e.proxiesUsed = append(e.proxiesUsed, profile.Proxy)
	return &fakeSession{engine: e}, nil
}

func (e *fakeEngine) nextStep() fetchStep {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.calls >= len(e.steps) {
		return fetchStep{err: errors.New("fetch script exhausted")}
	}
	step := e.steps[e.calls]
	e.calls++
	return step
}

type fakeSession struct {
	engine  *fakeEngine
	cookies map[string]string
	closed  bool
}

func (s *fakeSession) Fetch(_ context.Context, _ string, _ time.Duration) (engine.Page, error) {
	step := s.engine.nextStep()
	if step.err != nil {
		return nil, step.err
	}
	return &fakePage{status: 200, body: step.body}, nil
}

func (s *fakeSession) SetCookies(cookies map[string]string) error {
	if s.cookies == nil {
		s.cookies = map[string]string{}
	}
	for k, v := range cookies {
		s.cookies[k] = v
	}
	return nil
}

func (s *fakeSession) Cookies() (map[string]string, error) {
	return s.cookies, nil
}

func (s *fakeSession) Alive() bool { return !s.closed }

func (s *fakeSession) Close() error {
	s.closed = true
	s.engine.mu.Lock()
	s.engine.sessionsClosed++
	s.engine.mu.Unlock()
	return nil
}

// testOrchestrator builds an orchestrator whose sleeps are recorded
// instead of slept and whose jitter is fixed at zero.
func testOrchestrator(eng engine.Engine) (*Orchestrator, *[]time.Duration) {
	sleeps := &[]time.Duration{}
	o := NewOrchestrator(eng)
	o.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	o.jitter = func() float64 { return 0 }
	return o, sleeps
}
