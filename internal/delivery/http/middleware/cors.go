package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORS returns a handler that applies CORS for allowedOrigins and answers
// preflight requests itself. "*" accepts any origin; credentials are never allowed.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o != "" {
			origins = append(origins, o)
		}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept"},
		MaxAge:         86400,
	}).Handler(next)
}
