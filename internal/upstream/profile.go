package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ProfileResponse is the QueryProfile envelope.
type ProfileResponse struct {
	ProfileChanges []struct {
		Profile Profile `json:"profile"`
	} `json:"profileChanges"`
}

// Profile returns the first profile change, or an empty profile.
func (r *ProfileResponse) Profile() *Profile {
	if len(r.ProfileChanges) == 0 {
		return &Profile{}
	}
	return &r.ProfileChanges[0].Profile
}

// Profile is a subject's save data in one namespace.
type Profile struct {
	Items ProfileItems `json:"items"`
	Stats struct {
		Attributes json.RawMessage `json:"attributes"`
	} `json:"stats"`
}

// DecodeAttributes decodes stats.attributes into v. Missing attributes leave v untouched.
func (p *Profile) DecodeAttributes(v any) error {
	if len(p.Stats.Attributes) == 0 || string(p.Stats.Attributes) == "null" {
		return nil
	}
	if err := json.Unmarshal(p.Stats.Attributes, v); err != nil {
		return fmt.Errorf("failed to decode profile attributes: %w", err)
	}
	return nil
}

// ProfileItem is one inventory entry.
type ProfileItem struct {
	ID         string `json:"-"`
	TemplateID string `json:"templateId"`
	Quantity   Int    `json:"quantity"`
}

// ProfileItems keeps items in the order the service sent them.
type ProfileItems []ProfileItem

// UnmarshalJSON decodes the id -> item object preserving key order.
func (p *ProfileItems) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("profile items: expected object, got %v", tok)
	}

	items := ProfileItems{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("profile items: expected key, got %v", keyTok)
		}

		var item ProfileItem
		if err := dec.Decode(&item); err != nil {
			return fmt.Errorf("profile item %s: %w", key, err)
		}
		item.ID = key
		items = append(items, item)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*p = items
	return nil
}

// CommonCoreAttributes are the common_core stats the aggregator reads.
type CommonCoreAttributes struct {
	MtxPurchaseHistory struct {
		RefundsUsed Int `json:"refundsUsed"`
	} `json:"mtx_purchase_history"`
	GiftsSent             Int  `json:"gifts_sent"`
	GiftsReceived         Int  `json:"gifts_received"`
	AllowedToReceiveGifts Bool `json:"allowed_to_receive_gifts"`
}

// AthenaAttributes are the athena stats the aggregator reads.
type AthenaAttributes struct {
	AccountLevel         Int          `json:"accountLevel"`
	BookLevel            Int          `json:"book_level"`
	BookPurchased        Bool         `json:"book_purchased"`
	Level                Int          `json:"level"`
	LastMatchEndDatetime string       `json:"last_match_end_datetime"`
	PastSeasons          []PastSeason `json:"past_seasons"`
}

// PastSeason is one entry of athena past_seasons.
type PastSeason struct {
	SeasonNumber   Int  `json:"seasonNumber"`
	NumWins        Int  `json:"numWins"`
	NumHighBracket Int  `json:"numHighBracket"`
	NumLowBracket  Int  `json:"numLowBracket"`
	SeasonLevel    Int  `json:"seasonLevel"`
	BookLevel      Int  `json:"bookLevel"`
	PurchasedVIP   Bool `json:"purchasedVIP"`
}

// Int decodes numbers and numeric strings; anything else becomes 0.
type Int int64

func (i *Int) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			*i = Int(v)
			return nil
		}
		if f, err := n.Float64(); err == nil {
			*i = Int(f)
			return nil
		}
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			*i = Int(v)
			return nil
		}
	}
	*i = 0
	return nil
}

// Bool decodes booleans; anything else becomes false.
type Bool bool

func (b *Bool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		*b = false
		return nil
	}
	*b = Bool(v)
	return nil
}

// Time decodes RFC 3339 timestamps; empty, null or malformed values stay unset.
type Time struct {
	t *time.Time
}

func (t *Time) UnmarshalJSON(data []byte) error {
	t.t = nil
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return nil
	}
	if v, err := time.Parse(time.RFC3339, s); err == nil {
		t.t = &v
	}
	return nil
}

// Ptr returns the decoded time, or nil when the value was missing or unusable.
func (t Time) Ptr() *time.Time { return t.t }
