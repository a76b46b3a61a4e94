package service

import "github.com/google/uuid"

// Actor is the authenticated user on whose behalf an operation runs. It is
// passed explicitly into every call; services never read request state.
type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

func (a Actor) Is(id uuid.UUID) bool {
	return a.ID != uuid.Nil && a.ID == id
}

func (a Actor) ptr() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}
