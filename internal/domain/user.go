package domain

import (
	"math"
	"strconv"
	"time"
)

// AnonymousOAuthID is the oauth_id of the one distinguished anonymous
// user; AnonymousAPIKey and AnonymousUserID are its other fixed fields.
const (
	AnonymousOAuthID = "anon"
	AnonymousAPIKey  = "0000000000"
	AnonymousUserID  = 0
)

// Kudos ledger action keys.
const (
	ActionAccumulated = "accumulated"
	ActionGifted      = "gifted"
	ActionReceived    = "received"
)

// Contributions tracks a user's cumulative production of generated text.
type Contributions struct {
	Chars        int64 `json:"chars"`
	Fulfillments int64 `json:"fulfillments"`
}

// Usage tracks a user's cumulative consumption of generation capacity.
type Usage struct {
	Chars    int64 `json:"chars"`
	Requests int64 `json:"requests"`
}

// User is an account in the kudos ledger: it either submits prompts
// (consumer) or owns workers that fulfil them (contributor), usually
// both at once. kudos is the running signed balance; kudos_details
// breaks the same balance down by the event that moved it.
type User struct {
	ID             int64          `json:"id"`
	Username       string         `json:"username"`
	OAuthID        string         `json:"oauth_id"`
	APIKey         string         `json:"api_key"`
	InviteID       string         `json:"invite_id"`
	CreationDate   time.Time      `json:"creation_date"`
	LastActive     time.Time      `json:"last_active"`
	Kudos          float64        `json:"kudos"`
	KudosDetails   map[string]float64 `json:"kudos_details"`
	Contributions  Contributions  `json:"contributions"`
	Usage          Usage          `json:"usage"`
}

// NewUser constructs a User with zeroed ledgers; it is not registered
// in any index until the caller adds it.
func NewUser(id int64, username, oauthID, apiKey, inviteID string, now time.Time) *User {
	return &User{
		ID:           id,
		Username:     username,
		OAuthID:      oauthID,
		APIKey:       apiKey,
		InviteID:     inviteID,
		CreationDate: now,
		LastActive:   now,
		KudosDetails: map[string]float64{},
	}
}

// Alias returns the unique "username#id" alias for this user.
func (u *User) Alias() string {
	return u.Username + "#" + strconv.FormatInt(u.ID, 10)
}

// IsAnonymous reports whether this is the one distinguished anonymous user.
func (u *User) IsAnonymous() bool {
	return u != nil && u.OAuthID == AnonymousOAuthID
}

// ModifyKudos applies a signed delta to the balance and to the named
// ledger bucket. The accumulated bucket receives the signed delta (it
// is a balance, and can go negative on consumption); every other
// bucket (gifted, received, and the worker-side generated/uptime keys)
// receives the absolute value of the delta, because those are volume
// counters rather than balances. Both are rounded to two decimals at
// the event, not only on read, so drift never exceeds 0.01 per event.
func (u *User) ModifyKudos(delta float64, action string) {
	u.Kudos = round2(u.Kudos + delta)
	bucketDelta := delta
	if action != ActionAccumulated {
		bucketDelta = absFloat(delta)
	}
	u.KudosDetails[action] = round2(u.KudosDetails[action] + bucketDelta)
}

// RecordUsage debits kudos for a unit of consumption: usage.chars and
// usage.requests grow, and the accumulated bucket is debited.
func (u *User) RecordUsage(chars int64, kudos float64) {
	u.Usage.Chars += chars
	u.Usage.Requests++
	u.ModifyKudos(-kudos, ActionAccumulated)
}

// RecordContributions credits kudos for a unit of production.
func (u *User) RecordContributions(chars int64, kudos float64) {
	u.Contributions.Chars += chars
	u.Contributions.Fulfillments++
	u.ModifyKudos(kudos, ActionAccumulated)
}

// RecordUptime credits kudos earned simply by staying live and checked in.
func (u *User) RecordUptime(kudos float64) {
	u.ModifyKudos(kudos, ActionAccumulated)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func absFloat(v float64) float64 {
	return math.Abs(v)
}
