package models

import "github.com/google/uuid"

// assignID fills an empty primary key before insert so rows do not depend on a
// database-side uuid default.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
