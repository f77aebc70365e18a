package store

import (
	"github.com/agentforge/agentforge/pkg/errorkind"
)

// errTaskNotFound, errTaskExists, errStateCorrupted are returned wrapped
// with errorkind.Kind by the operations below; callers should use
// errorkind.Is(err, errorkind.NotFound) etc. rather than comparing these
// directly (grounded on pkg/services/errors.go's sentinel-error style,
// generalized to the shared errorkind taxonomy used across every
// component rather than kept service-local).
func errTaskNotFound(id string) error {
	return errorkind.New(errorkind.NotFound, "task not found: "+id)
}

func errTaskExists(id string) error {
	return errorkind.New(errorkind.AlreadyExists, "task already exists: "+id)
}

func errEscalationNotFound(id string) error {
	return errorkind.New(errorkind.NotFound, "escalation not found: "+id)
}
