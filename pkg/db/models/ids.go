package models

import "github.com/google/uuid"

// assignID fills a zero primary key before insert so the same models work
// against postgres and sqlite without relying on gen_random_uuid().
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
