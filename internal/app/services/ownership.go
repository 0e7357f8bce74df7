package services

import "errors"

// Shared lifecycle sentinels. Ownership governs mutation rights and is checked
// against the owner/creator column only; it is independent of the visibility
// engine, which governs read rights. ErrAccessDenied is the member-gated read
// refusal (403); ErrNotMember flags a lifecycle action against a membership
// that does not exist (400).
var (
	ErrNotOwner              = errors.New("not the owner")
	ErrNotMember             = errors.New("not a member")
	ErrAccessDenied          = errors.New("access denied")
	ErrAlreadyMember         = errors.New("already a member")
	ErrOwnerCannotLeave      = errors.New("owner cannot leave, delete instead")
	ErrOwnerCannotRemoveSelf = errors.New("owner cannot remove themselves")
	ErrInviteNotFound        = errors.New("invalid or expired invite")
)

// requireOwner is the ownership guard used by every update/delete path.
func requireOwner(ownerID, userID string) error {
	if ownerID != userID {
		return ErrNotOwner
	}
	return nil
}
