package domain

// Profile is the signed-in user's profile as returned by the backend.
type Profile struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FullName  string  `json:"full_name"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Role      string  `json:"role"`
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
	Address   *string `json:"address,omitempty" validate:"omitempty,min=5,max=255"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.FullName == nil && p.Phone == nil && p.Address == nil && p.AvatarURL == nil
}

// Apply returns a copy of prof with the patch applied.
func (p ProfilePatch) Apply(prof Profile) Profile {
	if p.FullName != nil {
		prof.FullName = *p.FullName
	}
	if p.Phone != nil {
		prof.Phone = cloneString(p.Phone)
	}
	if p.Address != nil {
		prof.Address = cloneString(p.Address)
	}
	if p.AvatarURL != nil {
		prof.AvatarURL = cloneString(p.AvatarURL)
	}
	return prof
}
