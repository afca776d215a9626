package models

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a prefixed unique identifier, e.g. "msg_4f1c09b2a7d34e61".
// The prefix names the entity kind (msg, task, conv, exec, vec, session).
func NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
