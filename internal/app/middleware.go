package app

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/rest"
	"github.com/tallyhq/tally/pkg/user"
)

const userIdHeader = "X-User-Id"

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies) {

	// Propagate X-User-Id header into context for downstream services
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			uid := req.Header.Get(userIdHeader)
			ctx := req.Context()

			if uid != "" {
				u, err := deps.UserService.GetUserByUid(ctx, uid)
				if err != nil {
					if errors.Is(err, user.ErrUserNotFound) {
						log.Debugf("user not found: %s", uid)
						rest.WriteJSON(w, http.StatusForbidden, rest.ErrorResponse{Error: "user not found"})
						return
					}
					log.Errorf("failed to get user: %v", err)
					rest.WriteError(w, err)
					return
				}
				log.Tracef("user found: %s", u.Uid)
				ctx = user.WithUser(ctx, u)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})

	// Everything except user registration needs a resolved user
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path == "/api/user" && req.Method == http.MethodPost {
				next.ServeHTTP(w, req)
				return
			}
			if _, err := user.CurrentId(req.Context()); err != nil {
				rest.WriteJSON(w, http.StatusUnauthorized, rest.ErrorResponse{Error: "missing " + userIdHeader + " header"})
				return
			}
			next.ServeHTTP(w, req)
		})
	})
}
