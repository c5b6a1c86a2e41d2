package repository

import "github.com/google/uuid"

// nullableUUID maps the zero UUID to SQL NULL for optional references.
func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}

	return id
}
