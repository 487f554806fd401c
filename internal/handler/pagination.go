package handler

import (
	"net/http"
	"strconv"
)

// ParseLimit reads ?limit. Missing or non-numeric values yield def; the
// service applies its own bounds to whatever comes through.
func ParseLimit(r *http.Request, def int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return def
	}
	return limit
}
