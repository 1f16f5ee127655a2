package model

// Member is a chat-platform guild member as seen by the conversation engine.
type Member struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
	Roles       []string
}

// Name returns the best display name we have for the member.
func (m Member) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Username
}

// HasRole reports whether the member currently holds the given role.
func (m Member) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// Mention renders the platform mention for the member.
func (m Member) Mention() string {
	return "<@" + m.ID + ">"
}
