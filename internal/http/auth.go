package http

import (
	"net/http"
	"strings"

	"kharcha/internal/core"
	"kharcha/internal/log"
)

// UserIDHeader carries the identity provider subject set by the upstream
// auth proxy.
const UserIDHeader = "X-User-ID"

type userHandler func(w http.ResponseWriter, r *http.Request, user core.User)

// authed resolves the caller before running next. Unknown or missing
// identities never reach a handler.
func (s *Server) authed(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.resolver.Resolve(r.Context(), strings.TrimSpace(r.Header.Get(UserIDHeader)))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := log.NewContext(r.Context(), log.FromContext(r.Context()).With(log.FieldUserID, user.ID))
		next(w, r.WithContext(ctx), user)
	})
}
