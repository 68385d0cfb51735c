package xid

import "github.com/google/uuid"

// New returns a random identifier of the form "<prefix>-<uuid>".
func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
