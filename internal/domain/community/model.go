package community

import "time"

// Community is a top-level neighborhood grouping. The owner is implicitly and
// permanently a member; only deleting the community removes that relationship.
type Community struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	InviteToken string     `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"-"`
}

// Membership links a user to a community, unique per (communityId, userId).
type Membership struct {
	CommunityID string    `json:"communityId"`
	UserID      string    `json:"userId"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// CreateInput carries the payload for creating a community.
type CreateInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdateInput carries the owner-only mutable fields.
type UpdateInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Projection is the small confirmation payload returned after a join.
type Projection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Preview is the pre-join view resolved from an invite token. It deliberately
// carries no token, no member list and no contact data.
type Preview struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MemberCount int    `json:"memberCount"`
}

// InviteResponse is returned to the owner when fetching or rotating the link.
type InviteResponse struct {
	InviteURL   string `json:"inviteUrl"`
	InviteToken string `json:"inviteToken"`
}

func (c *Community) Projection() Projection {
	return Projection{ID: c.ID, Name: c.Name, Description: c.Description}
}
