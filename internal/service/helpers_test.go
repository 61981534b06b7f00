package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/internal/upstream"
)

// fakeSleeper records requested waits without sleeping.
type fakeSleeper struct {
	mu     sync.Mutex
	calls  []time.Duration
	failAt int // 1-based call that returns failErr; 0 never fails
	fail   error
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	if s.failAt > 0 && len(s.calls) == s.failAt {
		return s.fail
	}
	return ctx.Err()
}

func (s *fakeSleeper) total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t time.Duration
	for _, d := range s.calls {
		t += d
	}
	return t
}

func (s *fakeSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type grantCall struct {
	secret string
	form   url.Values
}

// fakeTokenAPI implements TokenAPI with per-grant-type handlers.
type fakeTokenAPI struct {
	mu     sync.Mutex
	grants []grantCall

	grant          func(secret string, form url.Values) (*upstream.TokenResponse, error)
	deviceAuthz    func(appToken string) (*upstream.DeviceAuthorizationResponse, error)
	exchange       func(accessToken string) (*upstream.ExchangeResponse, error)
	createDevice   func(accessToken, accountID string) (*upstream.DeviceAuthResponse, error)
	exchangeTokens []string
}

func (f *fakeTokenAPI) Grant(_ context.Context, secret string, form url.Values) (*upstream.TokenResponse, error) {
	f.mu.Lock()
	f.grants = append(f.grants, grantCall{secret: secret, form: form})
	f.mu.Unlock()
	return f.grant(secret, form)
}

func (f *fakeTokenAPI) DeviceAuthorization(_ context.Context, appToken string) (*upstream.DeviceAuthorizationResponse, error) {
	return f.deviceAuthz(appToken)
}

func (f *fakeTokenAPI) Exchange(_ context.Context, accessToken string) (*upstream.ExchangeResponse, error) {
	f.mu.Lock()
	f.exchangeTokens = append(f.exchangeTokens, accessToken)
	f.mu.Unlock()
	return f.exchange(accessToken)
}

func (f *fakeTokenAPI) CreateDeviceAuth(_ context.Context, accessToken, accountID string) (*upstream.DeviceAuthResponse, error) {
	return f.createDevice(accessToken, accountID)
}

// fakeProfileAPI implements ProfileAPI from canned values.
type fakeProfileAPI struct {
	account       *upstream.Account
	accountErr    error
	externalAuths json.RawMessage
	externalErr   error
	profiles      map[string]*upstream.Profile
	profileErr    map[string]error
}

func (f *fakeProfileAPI) GetAccount(context.Context, string, string) (*upstream.Account, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.account, nil
}

func (f *fakeProfileAPI) GetExternalAuths(context.Context, string, string) (json.RawMessage, error) {
	if f.externalErr != nil {
		return nil, f.externalErr
	}
	if f.externalAuths == nil {
		return json.RawMessage("[]"), nil
	}
	return f.externalAuths, nil
}

func (f *fakeProfileAPI) QueryProfile(_ context.Context, _, _, profileID string) (*upstream.Profile, error) {
	if err := f.profileErr[profileID]; err != nil {
		return nil, err
	}
	if p, ok := f.profiles[profileID]; ok {
		return p, nil
	}
	return &upstream.Profile{}, nil
}

// profileFromJSON decodes a profile the way the upstream client does.
func profileFromJSON(raw string) *upstream.Profile {
	var p upstream.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		panic(err)
	}
	return &p
}

func accountFromJSON(raw string) *upstream.Account {
	var a upstream.Account
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		panic(err)
	}
	return &a
}

// reverseResolver holds each id longer the earlier it sits in its batch, so
// lookups within a batch complete in reverse order. Ids end in their index.
type reverseResolver struct {
	mu       sync.Mutex
	step     time.Duration
	batch    int
	finished []string
}

func (r *reverseResolver) Resolve(_ context.Context, id string) model.CatalogRecord {
	n, err := strconv.Atoi(id[strings.LastIndex(id, "_")+1:])
	if err != nil {
		panic(err)
	}
	time.Sleep(time.Duration(r.batch-n%r.batch) * r.step)

	r.mu.Lock()
	r.finished = append(r.finished, id)
	r.mu.Unlock()
	return model.CatalogRecord{ID: id, Name: id, Rarity: "Rare", Type: "Glider"}
}

// echoResolver resolves every id to a record named after it and tracks concurrency.
type echoResolver struct {
	mu       sync.Mutex
	inFlight int
	maxSeen  int
	ids      []string
	hold     time.Duration
}

func (r *echoResolver) Resolve(_ context.Context, id string) model.CatalogRecord {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxSeen {
		r.maxSeen = r.inFlight
	}
	r.ids = append(r.ids, id)
	r.mu.Unlock()

	if r.hold > 0 {
		time.Sleep(r.hold)
	}

	r.mu.Lock()
	r.inFlight--
	r.mu.Unlock()
	return model.CatalogRecord{ID: id, Name: "name:" + id, Rarity: "Rare", Type: "Outfit"}
}
