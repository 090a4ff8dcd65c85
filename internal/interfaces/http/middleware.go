package httpinterface

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"
	log "github.com/sirupsen/logrus"
)

// adminAuth guards the admin routes with a bearer token signed with the
// daemon's admin secret (HS256, the same scheme used to sign outgoing
// webhook notifications).
func (s *Service) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{
				Error: "missing bearer token",
			})
			return
		}

		token, err := jwt.Parse(
			tokenString, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf(
						"unexpected signing method %v", t.Header["alg"],
					)
				}
				return []byte(s.adminSecret), nil
			},
		)
		if err != nil || !token.Valid {
			log.Debugf("rejected admin request from %s", r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, errorBody{
				Error: "invalid bearer token",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth {
		return ""
	}
	return token
}
