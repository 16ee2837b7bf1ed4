package models

// Session is the client-side login state.
// AccessToken and RefreshToken are both set or both empty.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       int64
	Profile      UserProfile
}

// IsZero reports an anonymous session
func (s Session) IsZero() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

// Valid reports whether both tokens are present or both absent
func (s Session) Valid() bool {
	return (s.AccessToken == "") == (s.RefreshToken == "")
}

// AuthResult is the canonical body of /auth/signin and /auth/refresh.
// The fields live at the top level of the JSON object.
type AuthResult struct {
	Message      string      `json:"message,omitempty"`
	Token        string      `json:"token" validate:"required"`
	RefreshToken string      `json:"refreshToken"`
	User         UserProfile `json:"user"`
}

// Session built from the auth result
func (r AuthResult) Session() Session {
	return Session{
		AccessToken:  r.Token,
		RefreshToken: r.RefreshToken,
		UserID:       r.User.ID,
		Profile:      r.User,
	}
}
