package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortnite-checker-api/internal/config"
	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/internal/upstream"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestAggregator(api ProfileAPI, resolver Resolver, sleeper Sleeper) *Aggregator {
	a := NewAggregator(api, resolver, config.AggregatorConfig{BatchSize: 20, BatchDelay: 100 * time.Millisecond}, logger.Discard())
	a.WithSleeper(sleeper)
	a.now = func() time.Time { return testNow }
	return a
}

func sampleProfileAPI() *fakeProfileAPI {
	return &fakeProfileAPI{
		account: accountFromJSON(`{"id":"acc","email":"alice@example.com","displayName":"Alice","country":"US",
			"created":"2018-03-01T00:00:00Z","lastDisplayNameChange":"","tfaEnabled":true,"emailVerified":true}`),
		externalAuths: []byte(`[{"type":"psn"}]`),
		profiles: map[string]*upstream.Profile{
			upstream.ProfileCommonCore: profileFromJSON(`{
				"items":{
					"c1":{"templateId":"Currency:MtxPurchased","quantity":1000},
					"f1":{"templateId":"Token:FounderPack_1","quantity":1},
					"c2":{"templateId":"Currency:MtxGiveaway","quantity":250},
					"f2":{"templateId":"Token:FoundersPack_4","quantity":1}
				},
				"stats":{"attributes":{
					"mtx_purchase_history":{"refundsUsed":4},
					"gifts_sent":3,"gifts_received":"2","allowed_to_receive_gifts":true
				}}
			}`),
			upstream.ProfileAthena: profileFromJSON(`{
				"items":{
					"i1":{"templateId":"AthenaCharacter:CID_002_Athena"},
					"i2":{"templateId":"AthenaCharacter:CID_001_Athena"},
					"i3":{"templateId":"AthenaLoadingScreen:LSID_CID_001"},
					"i4":{"templateId":"AthenaDance:EID_Floss"},
					"i5":{"templateId":"AthenaItemWrap:Wrap_001"}
				},
				"stats":{"attributes":{
					"accountLevel":512,"book_level":40,"book_purchased":true,"level":77,
					"last_match_end_datetime":"2025-03-01T11:00:00.000Z",
					"past_seasons":[
						{"seasonNumber":1,"numWins":2,"numHighBracket":10,"numLowBracket":5,"seasonLevel":30,"bookLevel":0,"purchasedVIP":false},
						{"seasonNumber":2,"numWins":3,"numHighBracket":"7","seasonLevel":70,"bookLevel":70,"purchasedVIP":true}
					]
				}}
			}`),
		},
	}
}

func TestAggregator_FetchAccountDocument(t *testing.T) {
	resolver := &echoResolver{}
	a := newTestAggregator(sampleProfileAPI(), resolver, &fakeSleeper{})

	doc, err := a.FetchAccountDocument(context.Background(), model.Credential{AccountID: "acc", AccessToken: "tok"})
	require.NoError(t, err)

	assert.Equal(t, "a***e@example.com", doc.Account.MaskedEmail)
	assert.Equal(t, "🇺🇸", doc.Account.CountryFlag)
	assert.Equal(t, int64(1250), doc.Account.VBucks)
	assert.JSONEq(t, `[{"type":"psn"}]`, string(doc.Account.ExternalAuths))
	assert.Equal(t, "Token:FoundersPack_4", doc.FounderEdition)
	require.NotNil(t, doc.Account.Created)
	assert.Equal(t, 2018, doc.Account.Created.Year())
	assert.Nil(t, doc.Account.LastDisplayNameChange)
	assert.Nil(t, doc.Account.LastLogin)

	assert.Equal(t, model.RefundInfo{RefundsUsed: 4, RefundsRemaining: -1}, doc.Refunds)
	assert.Equal(t, model.GiftInfo{GiftsSent: 3, GiftsReceived: 2, AllowedToReceiveGifts: true}, doc.Gifts)

	assert.Equal(t, 512, doc.Stats.AccountLevel)
	assert.Equal(t, 5, doc.Stats.TotalWins)
	assert.Equal(t, 22, doc.Stats.TotalMatches)
	require.NotNil(t, doc.Stats.DaysSinceLastMatch)
	assert.Equal(t, 9, *doc.Stats.DaysSinceLastMatch)
	assert.Equal(t, model.CurrentSeason{BattlepassLevel: 40, PurchasedBattlepass: true, SeasonLevel: 77}, doc.Stats.CurrentSeason)
	require.Len(t, doc.Stats.SeasonDetails, 2)
	assert.Equal(t, model.SeasonDetail{SeasonNumber: 2, Wins: 3, SeasonLevel: 70, BattlepassLevel: 70, PurchasedBattlepass: true}, doc.Stats.SeasonDetails[1])

	require.Len(t, doc.Cosmetics.Skins, 2)
	assert.Equal(t, "cid_002_athena", doc.Cosmetics.Skins[0].ID)
	assert.Equal(t, "cid_001_athena", doc.Cosmetics.Skins[1].ID)
	require.Len(t, doc.Cosmetics.Emotes, 1)
	assert.Equal(t, "eid_floss", doc.Cosmetics.Emotes[0].ID)
	assert.NotNil(t, doc.Cosmetics.Gliders)
	assert.Empty(t, doc.Cosmetics.Gliders)
	assert.Equal(t, model.CosmeticCounts{Skins: 2, Emotes: 1}, doc.Counts)
}

func TestAggregator_NoLastMatch(t *testing.T) {
	api := sampleProfileAPI()
	api.profiles[upstream.ProfileAthena] = profileFromJSON(`{"items":{},"stats":{"attributes":{}}}`)
	a := newTestAggregator(api, &echoResolver{}, &fakeSleeper{})

	doc, err := a.FetchAccountDocument(context.Background(), model.Credential{AccountID: "acc"})
	require.NoError(t, err)

	assert.Nil(t, doc.Stats.DaysSinceLastMatch)
	assert.Nil(t, doc.Stats.LastMatchDate)
	assert.Zero(t, doc.Stats.TotalMatches)
	assert.Equal(t, model.CosmeticCounts{}, doc.Counts)
}

func TestAggregator_StageFailures(t *testing.T) {
	upErr := fmt.Errorf("query: %w", &upstream.APIError{
		StatusCode:   401,
		ErrorCode:    "errors.com.epicgames.common.authentication.token_verification_failed",
		ErrorMessage: "Sorry we couldn't validate your token",
		Body:         []byte(`{"errorCode":"errors.com.epicgames.common.authentication.token_verification_failed"}`),
	})

	tests := []struct {
		stage  string
		breakF func(*fakeProfileAPI)
	}{
		{"account", func(f *fakeProfileAPI) { f.accountErr = upErr }},
		{"external_auths", func(f *fakeProfileAPI) { f.externalErr = upErr }},
		{"common_core", func(f *fakeProfileAPI) { f.profileErr = map[string]error{upstream.ProfileCommonCore: upErr} }},
		{"athena", func(f *fakeProfileAPI) { f.profileErr = map[string]error{upstream.ProfileAthena: upErr} }},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			api := sampleProfileAPI()
			tt.breakF(api)

			_, err := newTestAggregator(api, &echoResolver{}, &fakeSleeper{}).
				FetchAccountDocument(context.Background(), model.Credential{AccountID: "acc"})

			var aggErr *model.AggregationError
			require.ErrorAs(t, err, &aggErr)
			assert.Equal(t, tt.stage, aggErr.Stage)
			assert.Equal(t, 401, aggErr.StatusCode)
			assert.Equal(t, "Sorry we couldn't validate your token", aggErr.Message)
			assert.Contains(t, string(aggErr.Payload), "token_verification_failed")
		})
	}
}

func TestAggregator_EnrichmentCancelledBetweenBatches(t *testing.T) {
	items := make([]string, 21)
	for i := range items {
		items[i] = fmt.Sprintf(`"s%d":{"templateId":"AthenaCharacter:CID_%03d"}`, i, i)
	}
	api := sampleProfileAPI()
	api.profiles[upstream.ProfileAthena] = profileFromJSON(`{"items":{` + strings.Join(items, ",") + `},"stats":{"attributes":{}}}`)
	sleeper := &fakeSleeper{failAt: 1, fail: context.Canceled}

	_, err := newTestAggregator(api, &echoResolver{}, sleeper).
		FetchAccountDocument(context.Background(), model.Credential{AccountID: "acc"})

	var aggErr *model.AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, "enrichment", aggErr.Stage)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregator_TransportFailureMessage(t *testing.T) {
	api := sampleProfileAPI()
	api.accountErr = errors.New("get account: request failed: EOF")

	_, err := newTestAggregator(api, &echoResolver{}, &fakeSleeper{}).
		FetchAccountDocument(context.Background(), model.Credential{AccountID: "acc"})

	var aggErr *model.AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.Zero(t, aggErr.StatusCode)
	assert.Nil(t, aggErr.Payload)
	assert.Contains(t, aggErr.Message, "EOF")
}

func TestAggregator_EnrichEntriesBatches(t *testing.T) {
	entries := make([]model.InventoryEntry, 45)
	for i := range entries {
		entries[i] = model.InventoryEntry{TemplateID: fmt.Sprintf("AthenaCharacter:CID_%03d", i)}
	}
	resolver := &echoResolver{hold: 2 * time.Millisecond}
	sleeper := &fakeSleeper{}
	a := newTestAggregator(&fakeProfileAPI{}, resolver, sleeper)

	out, err := a.EnrichEntries(context.Background(), entries)
	require.NoError(t, err)

	require.Len(t, out, 45)
	for i, rec := range out {
		assert.Equal(t, fmt.Sprintf("cid_%03d", i), rec.ID)
	}
	assert.LessOrEqual(t, resolver.maxSeen, 20)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, sleeper.calls)

	// every id of batch k is requested before any id of batch k+1
	for i, id := range resolver.ids {
		n, err := strconv.Atoi(strings.TrimPrefix(id, "cid_"))
		require.NoError(t, err)
		assert.Equal(t, i/20, n/20, "id %s requested out of its batch", id)
	}
}

func TestAggregator_EnrichEntriesOrderIndependentOfCompletion(t *testing.T) {
	entries := make([]model.InventoryEntry, 25)
	for i := range entries {
		entries[i] = model.InventoryEntry{TemplateID: fmt.Sprintf("AthenaGlider:Glider_ID_%02d", i)}
	}
	// earlier ids are held longer so each batch completes back to front
	resolver := &reverseResolver{step: 5 * time.Millisecond, batch: 20}
	a := newTestAggregator(&fakeProfileAPI{}, resolver, &fakeSleeper{})

	out, err := a.EnrichEntries(context.Background(), entries)
	require.NoError(t, err)

	require.Len(t, out, 25)
	for i, rec := range out {
		assert.Equal(t, fmt.Sprintf("glider_id_%02d", i), rec.ID)
	}
	require.Len(t, resolver.finished, 25)
	assert.Equal(t, "glider_id_19", resolver.finished[0], "first batch finishes last id first")
	assert.Equal(t, "glider_id_00", resolver.finished[19])
}

func TestAggregator_EnrichEntriesInterrupted(t *testing.T) {
	entries := make([]model.InventoryEntry, 30)
	for i := range entries {
		entries[i] = model.InventoryEntry{TemplateID: fmt.Sprintf("AthenaDance:EID_%d", i)}
	}
	sleeper := &fakeSleeper{failAt: 1, fail: context.Canceled}
	a := newTestAggregator(&fakeProfileAPI{}, &echoResolver{}, sleeper)

	_, err := a.EnrichEntries(context.Background(), entries)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregator_FetchAccountSummary(t *testing.T) {
	resolver := &echoResolver{}
	a := newTestAggregator(sampleProfileAPI(), resolver, &fakeSleeper{})

	s, err := a.FetchAccountSummary(context.Background(), model.Credential{AccountID: "acc"})
	require.NoError(t, err)

	assert.Equal(t, model.AccountSummary{
		DisplayName:  "Alice",
		MaskedEmail:  "a***e@example.com",
		Country:      "US",
		AccountLevel: 512,
		VBucks:       1250,
		Skins:        2,
		TotalWins:    5,
		TFAEnabled:   true,
	}, *s)
	assert.Empty(t, resolver.ids, "summary never resolves cosmetics")
}
