package httpserver

// promptRequest is the inbound shape of POST /v1/prompts.
type promptRequest struct {
	Prompt           string         `json:"prompt" validate:"required"`
	Params           map[string]any `json:"params"`
	N                int            `json:"n" validate:"required,min=1"`
	Models           []string       `json:"models"`
	MaxLength        int            `json:"max_length" validate:"required,min=1"`
	MaxContentLength int            `json:"max_content_length" validate:"required,min=1"`
	Softprompts      []string       `json:"softprompts"`
	Servers          []string       `json:"servers"`
}

type promptResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	Done        bool                   `json:"done"`
	Waiting     int                    `json:"waiting"`
	Processing  int                    `json:"processing"`
	Finished    int                    `json:"finished"`
	Generations []generationResponse   `json:"generations"`
}

type generationResponse struct {
	Text   string `json:"text"`
	Worker string `json:"worker_name"`
}

// checkInRequest is the inbound shape of POST /v1/workers/check-in.
type checkInRequest struct {
	Name             string   `json:"name" validate:"required"`
	Model            string   `json:"model" validate:"required"`
	MaxLength        int      `json:"max_length" validate:"required,min=1"`
	MaxContentLength int      `json:"max_content_length" validate:"required,min=1"`
	Softprompts      []string `json:"softprompts"`
}

// dispatchResponse mirrors domain.DispatchRecord for the wire.
type dispatchResponse struct {
	Payload    map[string]any `json:"payload,omitempty"`
	Softprompt string         `json:"softprompt,omitempty"`
	ID         string         `json:"id,omitempty"`
	Wait       bool           `json:"wait"`
}

// submitResultRequest is the inbound shape of
// POST /v1/generations/{id}/submit.
type submitResultRequest struct {
	Generation string `json:"generation" validate:"required"`
}

type workerInventoryEntry struct {
	Model string `json:"model"`
	Count int    `json:"count"`
}

type transferRequest struct {
	Destination string  `json:"username" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
}

type transferResponse struct {
	Granted float64 `json:"granted"`
	Reason  string  `json:"reason"`
}

type userResponse struct {
	Username      string             `json:"username"`
	Alias         string             `json:"alias"`
	Kudos         float64            `json:"kudos"`
	KudosDetails  map[string]float64 `json:"kudos_details"`
	Contributions int64              `json:"contributions_chars"`
	Usage         int64              `json:"usage_chars"`
}

type statsResponse struct {
	TopContributor string  `json:"top_contributor,omitempty"`
	TopServer      string  `json:"top_server,omitempty"`
	RequestAverage float64 `json:"request_avg"`
	ActiveServers  int     `json:"active_servers"`
}

type grantKudosRequest struct {
	OAuthID string  `json:"oauth_id" validate:"required"`
	Amount  float64 `json:"amount" validate:"required,gt=0"`
}

type adminTokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type adminTokenResponse struct {
	Token string `json:"token"`
}
