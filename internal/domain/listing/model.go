package listing

import (
	"time"

	"github.com/neighborly/go-neighborhood-api/internal/domain/user"
)

// Type classifies what the creator wants to do with the item.
type Type string

const (
	TypeSell   Type = "sell"
	TypeRent   Type = "rent"
	TypeLend   Type = "lend"
	TypeSearch Type = "search"
)

// VisibilityType says which kind of audience a grant addresses.
type VisibilityType string

const (
	VisibilityCommunity VisibilityType = "COMMUNITY"
	VisibilityGroup     VisibilityType = "GROUP"
)

// Listing is an item offer or request. It carries no audience itself; who may
// see it is mediated entirely through visibility grants.
type Listing struct {
	ID        string     `json:"id"`
	CreatorID string     `json:"creatorId"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	Type      Type       `json:"type"`
	Category  string     `json:"category,omitempty"`
	PriceCent *int64     `json:"priceCent,omitempty"`
	PhotoKeys []string   `json:"photoKeys,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"-"`
}

// Visibility authorizes the members of one community or one group to see a
// listing. Exactly one of CommunityID/GroupID is set, matching Type.
type Visibility struct {
	ID          string         `json:"id"`
	ListingID   string         `json:"listingId"`
	Type        VisibilityType `json:"visibilityType"`
	CommunityID string         `json:"communityId,omitempty"`
	GroupID     string         `json:"groupId,omitempty"`
}

// CreateInput carries the payload for creating a listing. CommunityIDs and
// GroupIDs are the full audience; both empty means private to the creator.
type CreateInput struct {
	Title        string   `json:"title"`
	Body         string   `json:"body,omitempty"`
	Type         Type     `json:"type"`
	Category     string   `json:"category,omitempty"`
	PriceCent    *int64   `json:"priceCent,omitempty"`
	CommunityIDs []string `json:"communityIds,omitempty"`
	GroupIDs     []string `json:"groupIds,omitempty"`
}

// UpdateInput carries creator-only mutable fields. A non-nil CommunityIDs or
// GroupIDs replaces the whole audience, there is no incremental diffing.
type UpdateInput struct {
	Title        *string   `json:"title,omitempty"`
	Body         *string   `json:"body,omitempty"`
	Category     *string   `json:"category,omitempty"`
	PriceCent    *int64    `json:"priceCent,omitempty"`
	CommunityIDs *[]string `json:"communityIds,omitempty"`
	GroupIDs     *[]string `json:"groupIds,omitempty"`
}

// Filter narrows a visible-listings query. It composes on top of the access
// decision and never widens it.
type Filter struct {
	Type     Type
	Category string
	Query    string
}

// Detail is the full view of a listing. Grants are filtered to the viewer's own
// memberships unless the viewer is the creator; Creator.Contact is blanked when
// the viewer is the creator.
type Detail struct {
	Listing
	Creator user.Profile `json:"creator"`
	Grants  []Visibility `json:"grants"`
}

func (t Type) Valid() bool {
	switch t {
	case TypeSell, TypeRent, TypeLend, TypeSearch:
		return true
	}
	return false
}
