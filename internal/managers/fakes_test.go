package managers

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/micuatri/calendarlink/internal/domain"
)

type fakeOAuthProvider struct {
	mu sync.Mutex

	exchangeGrant domain.OAuthGrant
	exchangeErr   error
	refreshGrant  domain.OAuthGrant
	refreshErr    error
	identity      domain.ProviderIdentity
	identityErr   error

	exchangeCalls int
	refreshCalls  int
	lastVerifier  string
	lastRefresh   string
}

func (p *fakeOAuthProvider) AuthCodeURL(state, codeVerifier string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (p *fakeOAuthProvider) Exchange(ctx context.Context, code, codeVerifier string) (domain.OAuthGrant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.exchangeCalls++
	p.lastVerifier = codeVerifier

	return p.exchangeGrant, p.exchangeErr
}

func (p *fakeOAuthProvider) Refresh(ctx context.Context, refreshToken string) (domain.OAuthGrant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refreshCalls++
	p.lastRefresh = refreshToken

	return p.refreshGrant, p.refreshErr
}

func (p *fakeOAuthProvider) Identity(ctx context.Context, accessToken string) (domain.ProviderIdentity, error) {
	return p.identity, p.identityErr
}

func (p *fakeOAuthProvider) Scopes() []string {
	return []string{"openid", "email", "calendar.events"}
}

// fakeCalendar stands in for the provider calendar. Events are keyed by
// external key.
type fakeCalendar struct {
	mu sync.Mutex

	events     map[string]string
	failKeys   map[string]error
	tokens     []string
	calls      atomic.Int32
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
	block      chan struct{}
	nextNumber int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		events:   make(map[string]string),
		failKeys: make(map[string]error),
	}
}

func (c *fakeCalendar) NewCalendarClient(ctx context.Context, accessToken string) (domain.CalendarClient, error) {
	c.mu.Lock()
	c.tokens = append(c.tokens, accessToken)
	c.mu.Unlock()

	return c, nil
}

func (c *fakeCalendar) enter() func() {
	c.calls.Add(1)
	n := c.inFlight.Add(1)
	for {
		peak := c.maxFlight.Load()
		if n <= peak || c.maxFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if c.block != nil {
		<-c.block
	}

	return func() { c.inFlight.Add(-1) }
}

func (c *fakeCalendar) FindByExternalKey(ctx context.Context, externalKey string) (string, bool, error) {
	defer c.enter()()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err, ok := c.failKeys[externalKey]; ok {
		return "", false, err
	}

	id, ok := c.events[externalKey]

	return id, ok, nil
}

func (c *fakeCalendar) CreateEvent(ctx context.Context, item domain.CalendarItem) (string, error) {
	defer c.enter()()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextNumber++
	id := fmt.Sprintf("evt-%d", c.nextNumber)
	c.events[item.ExternalKey] = id

	return id, nil
}

func (c *fakeCalendar) UpdateEvent(ctx context.Context, eventID string, item domain.CalendarItem) error {
	defer c.enter()()

	return nil
}
