package index

import (
	"testing"
	"time"

	"github.com/fairyhunter13/khbroker/internal/domain"
)

func TestUserIndex_ByOAuthID_AnonymousGate(t *testing.T) {
	ui := NewUserIndex()
	anon := domain.NewUser(domain.AnonymousUserID, "anonymous", domain.AnonymousOAuthID, domain.AnonymousAPIKey, "", time.Time{})
	ui.Add(anon.OAuthID, anon)

	if ui.ByOAuthID(domain.AnonymousOAuthID, false) != nil {
		t.Error("ByOAuthID found the anonymous user with anonymous access disabled")
	}
	if ui.ByOAuthID(domain.AnonymousOAuthID, true) == nil {
		t.Error("ByOAuthID did not find the anonymous user with anonymous access enabled")
	}
}

func TestUserIndex_ByAPIKey_AnonymousGate(t *testing.T) {
	ui := NewUserIndex()
	anon := domain.NewUser(domain.AnonymousUserID, "anonymous", domain.AnonymousOAuthID, domain.AnonymousAPIKey, "", time.Time{})
	ui.Add(anon.OAuthID, anon)

	if ui.ByAPIKey(domain.AnonymousAPIKey, false) != nil {
		t.Error("ByAPIKey found the anonymous user with anonymous access disabled")
	}
	if ui.ByAPIKey(domain.AnonymousAPIKey, true) == nil {
		t.Error("ByAPIKey did not find the anonymous user with anonymous access enabled")
	}
}

// TestUserIndex_ByUsername_AnonymousGate confirms the gate is applied
// consistently here too, fixing the original source's inverted
// condition on this one lookup path.
func TestUserIndex_ByUsername_AnonymousGate(t *testing.T) {
	ui := NewUserIndex()
	anon := domain.NewUser(domain.AnonymousUserID, "anonymous", domain.AnonymousOAuthID, domain.AnonymousAPIKey, "", time.Time{})
	ui.Add(anon.OAuthID, anon)

	if ui.ByUsername(anon.Alias(), false) != nil {
		t.Error("ByUsername found the anonymous user with anonymous access disabled")
	}
	if ui.ByUsername(anon.Alias(), true) == nil {
		t.Error("ByUsername did not find the anonymous user with anonymous access enabled")
	}
}

func TestUserIndex_ByUsername_MalformedAlias(t *testing.T) {
	ui := NewUserIndex()
	if ui.ByUsername("no-hash-separator", true) != nil {
		t.Error("ByUsername matched an alias with no '#' separator")
	}
	if ui.ByUsername("name#not-a-number", true) != nil {
		t.Error("ByUsername matched an alias with a non-numeric id")
	}
}

func TestUserIndex_ByUsername_Found(t *testing.T) {
	ui := NewUserIndex()
	u := domain.NewUser(42, "db0", "oauth-42", "key-42", "", time.Time{})
	ui.Add(u.OAuthID, u)
	if got := ui.ByUsername("db0#42", false); got != u {
		t.Errorf("ByUsername(db0#42) = %v, want %v", got, u)
	}
}
