package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// newInviteToken mints an opaque invite token. UUID-class entropy is enough to
// make links unguessable; rotating simply overwrites the stored value.
func newInviteToken() string {
	return uuid.NewString()
}

// communityInviteURL and groupInviteURL embed a bare token in the join-link
// shape the clients expect. The core otherwise only deals in token strings.
func communityInviteURL(baseURL, token string) string {
	return joinURL(baseURL, "/communities/join", token)
}

func groupInviteURL(baseURL, token string) string {
	return joinURL(baseURL, "/groups/join", token)
}

func joinURL(baseURL, path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", strings.TrimRight(baseURL, "/"), path, token)
}
