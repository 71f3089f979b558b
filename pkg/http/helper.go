package http

import (
	"net/http"
	"strconv"

	"pedalo/pkg/config"
	apperrors "pedalo/pkg/errors"
)

// Identity headers. Token issuance and verification happen upstream; this
// service only consumes the resolved identity.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	RoleAdmin = "admin"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = int64(v)
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// RequesterID returns the caller's user id, or an error when the header is
// missing.
func RequesterID(r *http.Request) (string, error) {
	id := r.Header.Get(HeaderUserID)
	if id == "" {
		return "", apperrors.Unauthorized("missing " + HeaderUserID + " header")
	}
	return id, nil
}

// IsAdmin reports whether the caller carries the admin role.
func IsAdmin(r *http.Request) bool {
	return r.Header.Get(HeaderUserRole) == RoleAdmin
}
