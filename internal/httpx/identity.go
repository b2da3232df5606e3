package httpx

import "net/http"

// Authentication lives upstream; by the time a request reaches this
// service the gateway has attached the caller's id and role as headers.
const (
	headerUserID   = "X-User-Id"
	headerUserRole = "X-User-Role"

	roleAdmin = "admin"
)

func callerID(r *http.Request) string   { return r.Header.Get(headerUserID) }
func callerRole(r *http.Request) string { return r.Header.Get(headerUserRole) }

// requireUser writes 401 and returns "" when no identity was supplied.
func requireUser(w http.ResponseWriter, r *http.Request) string {
	id := callerID(r)
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return ""
	}
	return id
}

// requireAdmin writes 403 unless the caller carries the admin role.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if callerID(r) == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return false
	}
	if callerRole(r) != roleAdmin {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin only"})
		return false
	}
	return true
}
