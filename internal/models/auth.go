package models

type IdentifyRequest struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

type TokenResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int      `json:"expires_in"`
	TokenType   string   `json:"token_type"`
	Attendee    Attendee `json:"attendee"`
}

type AddPointsRequest struct {
	Points int `json:"points"`
}

type CheckedInRequest struct {
	CheckedIn bool `json:"checked_in"`
}
