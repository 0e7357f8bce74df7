package group

import (
	"time"

	"github.com/neighborly/go-neighborhood-api/internal/domain/community"
)

// Group is a sub-grouping inside exactly one community. Group members are not
// required to stay community members by the data model itself; the lifecycle
// cascades keep the two in sync.
type Group struct {
	ID          string     `json:"id"`
	CommunityID string     `json:"communityId"`
	OwnerID     string     `json:"ownerId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	InviteToken string     `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"-"`
}

// Membership links a user to a group, unique per (groupId, userId).
type Membership struct {
	GroupID  string    `json:"groupId"`
	UserID   string    `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// CreateInput carries the payload for creating a group inside a community.
type CreateInput struct {
	CommunityID string `json:"communityId"`
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
	CommunityID string `json:"communityId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// JoinResult reports both memberships a group join may establish: joining a
// group implicitly joins its parent community when needed.
type JoinResult struct {
	Group           Projection           `json:"group"`
	Community       community.Projection `json:"community"`
	JoinedCommunity bool                 `json:"joinedCommunity"`
}

// Preview is the pre-join view resolved from an invite token.
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

func (g *Group) Projection() Projection {
	return Projection{ID: g.ID, CommunityID: g.CommunityID, Name: g.Name, Description: g.Description}
}
