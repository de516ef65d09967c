package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger logs method, path and latency for every admin API request,
// adapted from walletserver/middleware/logger.go.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.RequestURI,
			"duration": time.Since(start),
		}).Info("admin api request")
	})
}
