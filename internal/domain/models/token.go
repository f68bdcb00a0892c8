package models

// TokenPair is the credential set returned by login and refresh.
// The two tokens are only ever replaced together.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
