package httpx

import "net/http"

const (
	headerTenantID = "X-Tenant-Id"
	headerUserID   = "X-User-Id"
)

// Identity is the verified caller the auth layer attaches upstream.
// This service trusts the headers and does no signature verification.
type Identity struct {
	TenantID string
	UserID   string
}

func IdentityFromRequest(r *http.Request) (Identity, bool) {
	id := Identity{
		TenantID: r.Header.Get(headerTenantID),
		UserID:   r.Header.Get(headerUserID),
	}
	return id, id.TenantID != "" && id.UserID != ""
}

// CopyIdentity forwards the identity headers on a proxied request.
func CopyIdentity(dst, src *http.Request) {
	for _, h := range []string{headerTenantID, headerUserID} {
		if v := src.Header.Get(h); v != "" {
			dst.Header.Set(h, v)
		}
	}
}
