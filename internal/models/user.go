package models

// UserProfile is the cached copy of the signed-in user.
// Zero-valued fields mean "unknown" and never override cached values on merge.
type UserProfile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar,omitempty"`
}

// Merge returns a copy of p where every non-zero field of patch overrides p.
func (p UserProfile) Merge(patch UserProfile) UserProfile {
	if patch.ID != 0 {
		p.ID = patch.ID
	}
	if patch.Username != "" {
		p.Username = patch.Username
	}
	if patch.Email != "" {
		p.Email = patch.Email
	}
	if patch.AvatarURL != "" {
		p.AvatarURL = patch.AvatarURL
	}
	return p
}

// Author of a post as embedded by the posts API
type Author struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar,omitempty"`
}
