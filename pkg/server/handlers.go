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

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/newsmind/pkg/newsroom"
	"github.com/kadirpekel/newsmind/pkg/ratelimit"
	"github.com/kadirpekel/newsmind/pkg/store"
)

const (
	messageArticleGenerated = "Query processed successfully and article generated."
	maxRequestBody          = 1 << 20
)

// GenerateRequest is the body of POST /generate-article.
type GenerateRequest struct {
	Query string `json:"query"`
}

// SuccessResponse wraps a generated article.
type SuccessResponse struct {
	StatusCode int                     `json:"status_code"`
	Message    string                  `json:"message"`
	Data       *newsroom.ArticleOutput `json:"data"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Detail     any    `json:"detail"`
}

// ArticleList is the body of GET /articles.
type ArticleList struct {
	Articles []*store.ArticleRecord `json:"articles"`
	Count    int                    `json:"count"`
}

func (s *Server) handleGenerateArticle(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Bad Request", "Query cannot be empty")
		return
	}

	article, err := s.cfg.Generator.Generate(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, newsroom.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "Bad Request", "Query cannot be empty")
			return
		}
		slog.Error("An unexpected error occurred",
			"request_id", middleware.GetReqID(r.Context()),
			"query", req.Query,
			"error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error",
			"An unexpected error occurred: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, SuccessResponse{
		StatusCode: http.StatusCreated,
		Message:    messageArticleGenerated,
		Data:       article,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if s.cfg.Version != "" {
		body["version"] = s.cfg.Version
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Bad Request", "limit must be a positive integer")
			return
		}
		limit = min(n, 100)
	}

	recs, err := s.cfg.Articles.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error",
			"An unexpected error occurred: "+err.Error())
		return
	}
	if recs == nil {
		recs = []*store.ArticleRecord{}
	}
	writeJSON(w, http.StatusOK, ArticleList{Articles: recs, Count: len(recs)})
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	rec, err := s.cfg.Articles.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not Found", "Article not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error",
			"An unexpected error occurred: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, res *ratelimit.Result) {
	writeError(w, http.StatusTooManyRequests, "Too Many Requests",
		fmt.Sprintf("limit of %d requests reached, retry after %s", res.Limit, res.ResetAt.UTC().Format(time.RFC3339)))
}

func writeError(w http.ResponseWriter, status int, message string, detail any) {
	writeJSON(w, status, ErrorResponse{StatusCode: status, Message: message, Detail: detail})
}
