// Package handlers implements the HTTP API. Every handler reads the caller
// from the verified token in the request context and only touches the
// caller's rows.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/ns-gamming/ns-tracker-sub000/internal/ai"
	"github.com/ns-gamming/ns-tracker-sub000/internal/api/middleware"
	"github.com/ns-gamming/ns-tracker-sub000/internal/auth"
	"github.com/ns-gamming/ns-tracker-sub000/internal/finance"
	"github.com/ns-gamming/ns-tracker-sub000/internal/logger"
	"github.com/ns-gamming/ns-tracker-sub000/internal/market"
	"github.com/ns-gamming/ns-tracker-sub000/internal/news"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			middleware.WriteError(w, http.StatusBadRequest, "Request body is required")
		} else {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		}
		return false
	}
	return true
}

// requestInfo extracts the client address and user agent for activity entries.
func requestInfo(r *http.Request) finance.RequestInfo {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		ip, _, _ = strings.Cut(ip, ",")
		ip = strings.TrimSpace(ip)
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	} else {
		ip = r.RemoteAddr
	}
	return finance.RequestInfo{IP: ip, UserAgent: r.UserAgent()}
}

// queryInt parses an optional integer query parameter. ok is false when the
// value is present but malformed.
func queryInt(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// writeServiceError maps service and store errors to HTTP responses.
// Unexpected errors are logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verr *finance.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.WriteError(w, http.StatusBadRequest, verr.Error())
		return
	case errors.Is(err, finance.ErrValidation):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
		return
	case errors.Is(err, store.ErrForbidden):
		middleware.WriteError(w, http.StatusForbidden, "This record cannot be modified")
		return
	case errors.Is(err, finance.ErrNoPriceSource), errors.Is(err, news.ErrNotConfigured):
		middleware.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	log := logger.FromContext(r.Context())
	if errors.Is(err, ai.ErrUpstream) || errors.Is(err, market.ErrUpstream) || errors.Is(err, news.ErrUpstream) {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg(msg)
		middleware.WriteError(w, http.StatusBadGateway, msg)
		return
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	middleware.WriteError(w, http.StatusInternalServerError, msg)
}

func userID(r *http.Request) string {
	return auth.UserID(r.Context())
}
