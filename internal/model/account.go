package model

import (
	"encoding/json"
	"time"
)

// AccountDocument is the aggregate built for one account on every fetch.
type AccountDocument struct {
	Account        AccountInfo    `json:"account"`
	Stats          AccountStats   `json:"stats"`
	Refunds        RefundInfo     `json:"refunds"`
	Gifts          GiftInfo       `json:"gifts"`
	FounderEdition string         `json:"founderEdition"`
	Cosmetics      Cosmetics      `json:"cosmetics"`
	Counts         CosmeticCounts `json:"counts"`
}

// AccountInfo holds identity fields and the currency balance.
type AccountInfo struct {
	ID                    string          `json:"id"`
	Email                 string          `json:"email"`
	MaskedEmail           string          `json:"maskedEmail"`
	DisplayName           string          `json:"displayName"`
	Name                  string          `json:"name"`
	Country               string          `json:"country"`
	CountryFlag           string          `json:"countryFlag"`
	CanUpdateDisplayName  bool            `json:"canUpdateDisplayName"`
	LastDisplayNameChange *time.Time      `json:"lastDisplayNameChange"`
	LastLogin             *time.Time      `json:"lastLogin"`
	Created               *time.Time      `json:"created"`
	TFAEnabled            bool            `json:"tfaEnabled"`
	EmailVerified         bool            `json:"emailVerified"`
	MinorVerified         bool            `json:"minorVerified"`
	MinorExpected         bool            `json:"minorExpected"`
	VBucks                int64           `json:"vbucks"`
	ExternalAuths         json.RawMessage `json:"externalAuths"`
}

// AccountStats holds match history derived figures.
type AccountStats struct {
	AccountLevel       int            `json:"accountLevel"`
	TotalWins          int            `json:"totalWins"`
	TotalMatches       int            `json:"totalMatches"`
	LastMatchDate      *time.Time     `json:"lastMatchDate"`
	DaysSinceLastMatch *int           `json:"daysSinceLastMatch"`
	SeasonDetails      []SeasonDetail `json:"seasonDetails"`
	CurrentSeason      CurrentSeason  `json:"currentSeason"`
}

// SeasonDetail summarises one past season.
type SeasonDetail struct {
	SeasonNumber        int  `json:"seasonNumber"`
	Wins                int  `json:"wins"`
	SeasonLevel         int  `json:"seasonLevel"`
	BattlepassLevel     int  `json:"battlepassLevel"`
	PurchasedBattlepass bool `json:"purchasedBattlepass"`
}

// CurrentSeason summarises the running season.
type CurrentSeason struct {
	BattlepassLevel     int  `json:"battlepassLevel"`
	PurchasedBattlepass bool `json:"purchasedBattlepass"`
	SeasonLevel         int  `json:"seasonLevel"`
}

// RefundInfo tracks refund tickets. RefundsRemaining is not clamped at zero.
type RefundInfo struct {
	RefundsUsed      int `json:"refundsUsed"`
	RefundsRemaining int `json:"refundsRemaining"`
}

// GiftInfo tracks gifting counters.
type GiftInfo struct {
	GiftsSent             int  `json:"giftsSent"`
	GiftsReceived         int  `json:"giftsReceived"`
	AllowedToReceiveGifts bool `json:"allowedToReceiveGifts"`
}

// Cosmetics holds resolved records per category, in inventory order.
type Cosmetics struct {
	Skins      []CatalogRecord `json:"skins"`
	Backblings []CatalogRecord `json:"backblings"`
	Pickaxes   []CatalogRecord `json:"pickaxes"`
	Emotes     []CatalogRecord `json:"emotes"`
	Gliders    []CatalogRecord `json:"gliders"`
}

// Get returns the records of one category.
func (c *Cosmetics) Get(cat Category) []CatalogRecord {
	switch cat {
	case CategorySkins:
		return c.Skins
	case CategoryBackblings:
		return c.Backblings
	case CategoryPickaxes:
		return c.Pickaxes
	case CategoryEmotes:
		return c.Emotes
	case CategoryGliders:
		return c.Gliders
	}
	return nil
}

// Set replaces the records of one category.
func (c *Cosmetics) Set(cat Category, records []CatalogRecord) {
	switch cat {
	case CategorySkins:
		c.Skins = records
	case CategoryBackblings:
		c.Backblings = records
	case CategoryPickaxes:
		c.Pickaxes = records
	case CategoryEmotes:
		c.Emotes = records
	case CategoryGliders:
		c.Gliders = records
	}
}

// Counts returns the number of records per category.
func (c *Cosmetics) Counts() CosmeticCounts {
	return CosmeticCounts{
		Skins:      len(c.Skins),
		Backblings: len(c.Backblings),
		Pickaxes:   len(c.Pickaxes),
		Emotes:     len(c.Emotes),
		Gliders:    len(c.Gliders),
	}
}

// CosmeticCounts is the per-category item count.
type CosmeticCounts struct {
	Skins      int `json:"skins"`
	Backblings int `json:"backblings"`
	Pickaxes   int `json:"pickaxes"`
	Emotes     int `json:"emotes"`
	Gliders    int `json:"gliders"`
}

// AccountSummary is the short projection of a document used in bulk reports.
type AccountSummary struct {
	DisplayName  string `json:"displayName"`
	MaskedEmail  string `json:"maskedEmail"`
	Country      string `json:"country"`
	AccountLevel int    `json:"accountLevel"`
	VBucks       int64  `json:"vbucks"`
	Skins        int    `json:"skins"`
	TotalWins    int    `json:"totalWins"`
	TFAEnabled   bool   `json:"tfaEnabled"`
}

// Summary projects the document into an AccountSummary.
func (d *AccountDocument) Summary() AccountSummary {
	return AccountSummary{
		DisplayName:  d.Account.DisplayName,
		MaskedEmail:  d.Account.MaskedEmail,
		Country:      d.Account.Country,
		AccountLevel: d.Stats.AccountLevel,
		VBucks:       d.Account.VBucks,
		Skins:        d.Counts.Skins,
		TotalWins:    d.Stats.TotalWins,
		TFAEnabled:   d.Account.TFAEnabled,
	}
}
