package persistence

import (
	"time"

	"github.com/fairyhunter13/khbroker/internal/domain"
)

// dateLayout is the on-disk timestamp format §6 specifies:
// "YYYY-MM-DD HH:MM:SS".
const dateLayout = "2006-01-02 15:04:05"

type userRecord struct {
	Username      string             `json:"username"`
	OAuthID       string             `json:"oauth_id"`
	APIKey        string             `json:"api_key"`
	Kudos         float64            `json:"kudos"`
	KudosDetails  map[string]float64 `json:"kudos_details"`
	ID            int64              `json:"id"`
	InviteID      string             `json:"invite_id"`
	Contributions struct {
		Chars        int64 `json:"chars"`
		Fulfillments int64 `json:"fulfillments"`
	} `json:"contributions"`
	Usage struct {
		Chars    int64 `json:"chars"`
		Requests int64 `json:"requests"`
	} `json:"usage"`
	CreationDate string `json:"creation_date"`
	LastActive   string `json:"last_active"`
}

func toUserRecord(u *domain.User) userRecord {
	r := userRecord{
		Username:     u.Username,
		OAuthID:      u.OAuthID,
		APIKey:       u.APIKey,
		Kudos:        u.Kudos,
		KudosDetails: u.KudosDetails,
		ID:           u.ID,
		InviteID:     u.InviteID,
		CreationDate: u.CreationDate.UTC().Format(dateLayout),
		LastActive:   u.LastActive.UTC().Format(dateLayout),
	}
	r.Contributions.Chars = u.Contributions.Chars
	r.Contributions.Fulfillments = u.Contributions.Fulfillments
	r.Usage.Chars = u.Usage.Chars
	r.Usage.Requests = u.Usage.Requests
	return r
}

func fromUserRecord(r userRecord) *domain.User {
	u := &domain.User{
		Username:     r.Username,
		OAuthID:      r.OAuthID,
		APIKey:       r.APIKey,
		Kudos:        r.Kudos,
		KudosDetails: r.KudosDetails,
		ID:           r.ID,
		InviteID:     r.InviteID,
	}
	if u.KudosDetails == nil {
		u.KudosDetails = map[string]float64{}
	}
	u.CreationDate = parseDate(r.CreationDate)
	u.LastActive = parseDate(r.LastActive)
	u.Contributions.Chars = r.Contributions.Chars
	u.Contributions.Fulfillments = r.Contributions.Fulfillments
	u.Usage.Chars = r.Usage.Chars
	u.Usage.Requests = r.Usage.Requests
	return u
}

type workerRecord struct {
	OAuthID          string             `json:"oauth_id"`
	Name             string             `json:"name"`
	Model            string             `json:"model"`
	MaxLength        int                `json:"max_length"`
	MaxContentLength int                `json:"max_content_length"`
	Contributions    int64              `json:"contributions"`
	Fulfilments      int64              `json:"fulfilments"`
	Kudos            float64            `json:"kudos"`
	KudosDetails     map[string]float64 `json:"kudos_details"`
	Performances     []float64          `json:"performances"`
	LastCheckIn      string             `json:"last_check_in"`
	ID               string             `json:"id"`
	Softprompts      []string           `json:"softprompts"`
	Uptime           int64              `json:"uptime"`
}

func toWorkerRecord(w *domain.Worker) workerRecord {
	return workerRecord{
		OAuthID:          w.OwnerOAuthID,
		Name:             w.Name,
		Model:            w.Model,
		MaxLength:        w.MaxLength,
		MaxContentLength: w.MaxContentLength,
		Contributions:    w.Contributions,
		Fulfilments:      w.Fulfilments,
		Kudos:            w.Kudos,
		KudosDetails:     w.KudosDetails,
		Performances:     w.Performances,
		LastCheckIn:      w.LastCheckIn.UTC().Format(dateLayout),
		ID:               w.ID,
		Softprompts:      w.Softprompts,
		Uptime:           w.Uptime,
	}
}

func fromWorkerRecord(r workerRecord) *domain.Worker {
	w := &domain.Worker{
		OwnerOAuthID:     r.OAuthID,
		Name:             r.Name,
		Model:            r.Model,
		MaxLength:        r.MaxLength,
		MaxContentLength: r.MaxContentLength,
		Contributions:    r.Contributions,
		Fulfilments:      r.Fulfilments,
		Kudos:            r.Kudos,
		KudosDetails:     r.KudosDetails,
		Performances:     r.Performances,
		ID:               r.ID,
		Softprompts:      r.Softprompts,
		Uptime:           r.Uptime,
	}
	if w.KudosDetails == nil {
		w.KudosDetails = map[string]float64{}
	}
	w.LastCheckIn = parseDate(r.LastCheckIn)
	return w
}

type statsRecord struct {
	FulfilmentTimes  []float64          `json:"fulfilment_times"`
	ModelMultipliers map[string]float64 `json:"model_multipliers"`
}

func toStatsRecord(s *domain.Stats) statsRecord {
	return statsRecord{FulfilmentTimes: s.FulfilmentTimes, ModelMultipliers: s.ModelMultipliers}
}

func fromStatsRecord(r statsRecord) *domain.Stats {
	s := &domain.Stats{FulfilmentTimes: r.FulfilmentTimes, ModelMultipliers: r.ModelMultipliers}
	if s.ModelMultipliers == nil {
		s.ModelMultipliers = map[string]float64{}
	}
	return s
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
