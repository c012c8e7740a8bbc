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


package httpclient

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"
)

type RetryStrategy int

const (
	NoRetry RetryStrategy = iota
	// ConservativeRetry allows two quick retries with linear delay.
	ConservativeRetry
	// SmartRetry honors rate limit headers, else backs off exponentially.
	SmartRetry
)

type RetryStrategyFunc func(statusCode int) RetryStrategy

// DefaultRetryStrategy retries rate limits and transient server errors.
func DefaultRetryStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return SmartRetry
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout:
		return ConservativeRetry
	default:
		return NoRetry
	}
}

// delay returns 0 when no further attempt should be made.
func (c *Client) delay(strategy RetryStrategy, attempt int, info RateLimitInfo) time.Duration {
	switch strategy {
	case SmartRetry:
		if info.RetryAfter > 0 {
			return info.RetryAfter
		}
		if info.ResetTime > 0 {
			if d := time.Until(time.Unix(info.ResetTime, 0)); d > 0 {
				return d
			}
		}
		backoff := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
		return backoff + backoff/10
	case ConservativeRetry:
		if attempt >= 2 {
			return 0
		}
		return time.Duration(attempt+1) * c.baseDelay
	default:
		return 0
	}
}

// RateLimitInfo is what an upstream told us about its limits.
type RateLimitInfo struct {
	RetryAfter        time.Duration
	ResetTime         int64
	RequestsRemaining int
	TokensRemaining   int
}

type RateLimitHeaderParser func(http.Header) RateLimitInfo

// ParseRetryAfter reads Retry-After in seconds or HTTP-date form.
func ParseRetryAfter(headers http.Header) RateLimitInfo {
	var info RateLimitInfo
	v := headers.Get("Retry-After")
	if v == "" {
		return info
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		info.RetryAfter = time.Duration(seconds) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			info.RetryAfter = d
		}
	}
	return info
}

// ParseOpenAIHeaders adds OpenAI's x-ratelimit-* headers to Retry-After.
// Resets are reported as durations ("6m0s", "20ms").
func ParseOpenAIHeaders(headers http.Header) RateLimitInfo {
	info := ParseRetryAfter(headers)

	for _, h := range []string{"x-ratelimit-reset-tokens", "x-ratelimit-reset-requests"} {
		if d, err := time.ParseDuration(headers.Get(h)); err == nil {
			info.ResetTime = time.Now().Add(d).Unix()
			break
		}
	}
	info.RequestsRemaining, _ = strconv.Atoi(headers.Get("x-ratelimit-remaining-requests"))
	info.TokensRemaining, _ = strconv.Atoi(headers.Get("x-ratelimit-remaining-tokens"))

	return info
}

// RetryableError is returned with the last response once retries run out.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("HTTP %d: %s (retry after %v)", e.StatusCode, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err carries a *RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
