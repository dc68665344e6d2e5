// Package models defines the client-side data models of the carpool API
// layer.
package models

// Tokens is the session credential pair issued by the backend on login or
// refresh. A zero value means "not signed in".
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Empty reports whether neither token is set.
func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// Merge returns t updated with the non-empty fields of next. A refresh
// response may omit the refresh token, in which case the old one is kept.
func (t Tokens) Merge(next Tokens) Tokens {
	if next.AccessToken != "" {
		t.AccessToken = next.AccessToken
	}
	if next.RefreshToken != "" {
		t.RefreshToken = next.RefreshToken
	}
	return t
}
