package index

import (
	"strconv"
	"strings"

	"github.com/fairyhunter13/khbroker/internal/domain"
)

// UserIndex specialises Index[*domain.User], keyed by oauth_id, with
// the identity-lookup helpers §4.2 requires.
type UserIndex struct {
	*Index[*domain.User]
}

// NewUserIndex constructs an empty user index.
func NewUserIndex() *UserIndex {
	return &UserIndex{Index: New[*domain.User]()}
}

// gate applies the single, consistent anonymous-access rule to a
// resolved user: a lookup that resolves to the anonymous user returns
// nothing when anonymous access is disabled. All three lookups below
// share this gate — the original source applied it inconsistently
// (username lookup inverted the condition relative to its siblings);
// here every lookup path behaves the same way.
func gate(u *domain.User, allowAnonymous bool) *domain.User {
	if u == nil {
		return nil
	}
	if u.IsAnonymous() && !allowAnonymous {
		return nil
	}
	return u
}

// ByOAuthID looks up a user by oauth_id.
func (ui *UserIndex) ByOAuthID(oauthID string, allowAnonymous bool) *domain.User {
	u, _ := ui.Get(oauthID)
	return gate(u, allowAnonymous)
}

// ByAPIKey looks up a user by api_key via linear scan, as the source
// does — api keys are opaque strings with no secondary index.
func (ui *UserIndex) ByAPIKey(apiKey string, allowAnonymous bool) *domain.User {
	for _, u := range ui.Values() {
		if u.APIKey == apiKey {
			return gate(u, allowAnonymous)
		}
	}
	return nil
}

// ByUsername looks up a user by its "username#id" alias.
func (ui *UserIndex) ByUsername(alias string, allowAnonymous bool) *domain.User {
	name, idStr, found := strings.Cut(alias, "#")
	if !found {
		return nil
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil
	}
	for _, u := range ui.Values() {
		if u.Username == name && u.ID == id {
			return gate(u, allowAnonymous)
		}
	}
	return nil
}
