package middleware

import (
	"net/http"
	"runtime/debug"

	perr "refguard/internal/platform/errors"
	"refguard/internal/platform/logger"
	pnet "refguard/internal/platform/net"
	phttp "refguard/internal/platform/net/http"
)

// RecoverJSON turns a panic into a 500 envelope. Headers the handler set before
// panicking are dropped so a half-built redirect never reaches the client
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			reqID := pnet.RequestID(r.Context())
			logger.C(r.Context()).Error().
				Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			h := w.Header()
			for k := range h {
				delete(h, k)
			}
			if reqID != "" {
				h.Set("X-Request-ID", reqID)
			}
			phttp.RespondError(w, r, perr.PanicErrf("internal error"))
		}()
		next.ServeHTTP(w, r)
	})
}
