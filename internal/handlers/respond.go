package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/nuthan1805/loyalty-managemen/internal/services"
	"github.com/nuthan1805/loyalty-managemen/internal/session"
	xhttp "github.com/nuthan1805/loyalty-managemen/pkg/http"
)

// SessionValidator is the slice of the session manager handlers need.
type SessionValidator interface {
	Validate(token string) (*session.Session, error)
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// statusForError maps the service error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return xhttp.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return xhttp.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return xhttp.StatusConflict
	case errors.Is(err, services.ErrInsufficientBalance):
		return xhttp.StatusUnprocessableEntity
	case errors.Is(err, services.ErrBackendUnavailable):
		return xhttp.StatusServiceUnavailable
	}
	return xhttp.StatusInternalServerError
}

func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	writeError(ctx, statusForError(err), err.Error())
}

// authorize resolves the bearer token into a session, or answers 401 and
// reports false.
func authorize(ctx *xhttp.RequestCtx, v SessionValidator) (*session.Session, bool) {
	header := string(ctx.Request.Header.Peek("Authorization"))
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" || token == header {
		writeError(ctx, xhttp.StatusUnauthorized, "missing bearer token")
		return nil, false
	}

	s, err := v.Validate(token)
	if err != nil {
		writeError(ctx, xhttp.StatusUnauthorized, err.Error())
		return nil, false
	}
	return s, true
}

func param(ctx *xhttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func queryInt(ctx *xhttp.RequestCtx, key string) int {
	if v := query(ctx, key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
