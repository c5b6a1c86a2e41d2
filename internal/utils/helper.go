package utils

import (
	"net/http"
	"strconv"

	appErrors "github.com/espressolabs/coffee-shop-platform/internal/errors"
	"github.com/google/uuid"
)

// ParseID reads a UUID path parameter.
func ParseID(r *http.Request, name string) (uuid.UUID, error) {

	raw := r.PathValue(name)
	if raw == "" {
		return uuid.Nil, appErrors.BadRequestError("Missing " + name + " parameter")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, appErrors.BadRequestError("Invalid " + name + " format").WithError(err)
	}

	return id, nil
}

// QueryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func QueryInt(r *http.Request, name string, def int) int {

	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}

	return value
}

// QueryFloat reads an optional float query parameter.
func QueryFloat(r *http.Request, name string) *float64 {

	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}

	return &value
}
