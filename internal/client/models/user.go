package models

// User is the signed-in account as cached locally.
type User struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	IsEmailConfirmed bool   `json:"isEmailConfirmed"`
	Salt             []byte `json:"salt"`
}

// Tokens is the token pair issued on login.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
