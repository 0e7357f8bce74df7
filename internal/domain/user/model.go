package user

import "time"

// User is a platform account. Accounts are soft-deleted: the row survives with a
// tombstone timestamp while other entities still reference it.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Contact   Contact    `json:"contact"`
	APIToken  string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"-"`
}

// Contact is the block shown to counterparties on a listing detail page.
type Contact struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Profile is the public projection attached to listing details.
type Profile struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Contact Contact `json:"contact"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Contact: u.Contact}
}
