// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"
)

// IdentifierFunc extracts the client identifier from a request.
type IdentifierFunc func(r *http.Request) string

// ClientIP identifies clients by remote address without the port. Put it
// behind chi's RealIP middleware to honor X-Forwarded-For.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	Limiter *Limiter

	// Identifier defaults to ClientIP.
	Identifier IdentifierFunc

	// OnLimited writes the rejection. Retry-After and X-RateLimit-*
	// headers are already set when it runs.
	// Default: plain 429.
	OnLimited func(w http.ResponseWriter, r *http.Request, res *Result)
}

// Middleware rejects requests over the limit. Store errors let the
// request through.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Identifier == nil {
		cfg.Identifier = ClientIP
	}
	if cfg.OnLimited == nil {
		cfg.OnLimited = func(w http.ResponseWriter, r *http.Request, res *Result) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := cfg.Identifier(r)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := cfg.Limiter.Allow(r.Context(), id)
			if err != nil {
				slog.Error("Rate limit check failed", "error", err, "client", id)
				next.ServeHTTP(w, r)
				return
			}

			setHeaders(w, res)
			if !res.Allowed {
				slog.Warn("Rate limit exceeded", "client", id, "path", r.URL.Path)
				w.Header().Set("Retry-After", retryAfterSeconds(res.RetryAfter))
				cfg.OnLimited(w, r, res)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds rounds up so clients never retry before the window resets.
func retryAfterSeconds(d time.Duration) string {
	return strconv.FormatInt(int64(math.Ceil(d.Seconds())), 10)
}

func setHeaders(w http.ResponseWriter, res *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}
