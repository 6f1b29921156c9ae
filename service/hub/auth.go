package hub

import (
	"net/http"
	"strings"

	"RTHub/tools/errs"
	"RTHub/tools/security"
)

// TokenVerifier is the authentication gate's view of the token issuer:
// given a raw credential it yields the stable user identity or fails.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// JWTVerifier validates locally against the shared signing secret.
type JWTVerifier struct {
	Opts security.Options
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{Opts: security.DefaultOptions(secret)}
}

func (v *JWTVerifier) Verify(token string) (string, error) {
	userID, err := security.Verify(v.Opts, token)
	if err != nil {
		return "", errs.ErrUnauthenticated.WithDetail(err.Error())
	}
	return userID, nil
}

// ExtractToken pulls the credential off the handshake request, checking
// in priority order: URL query parameter, Authorization bearer header,
// cookie named "token". Empty string means no credential at all.
func ExtractToken(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			if t := strings.TrimSpace(authz[len("bearer "):]); t != "" {
				return t
			}
		}
	}
	if c, err := r.Cookie("token"); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
