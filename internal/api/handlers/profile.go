package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/ns-gamming/ns-tracker-sub000/internal/api/middleware"
	"github.com/ns-gamming/ns-tracker-sub000/internal/auth"
	"github.com/ns-gamming/ns-tracker-sub000/internal/finance"
	"github.com/ns-gamming/ns-tracker-sub000/internal/infra/gcs"
	"github.com/ns-gamming/ns-tracker-sub000/internal/realtime"
	"github.com/rs/zerolog"
)

const maxAvatarBytes = 5 << 20

var avatarTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ObjectStorage stores uploaded files.
type ObjectStorage interface {
	Upload(ctx context.Context, objectName, contentType string, r io.Reader) (string, error)
	PublicURL(objectName string) string
}

// ProfileHandler serves the caller's profile.
type ProfileHandler struct {
	svc     *finance.Service
	storage ObjectStorage
	log     zerolog.Logger
}

// NewProfileHandler creates a profile handler. A nil storage disables avatar uploads.
func NewProfileHandler(svc *finance.Service, storage ObjectStorage, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, storage: storage, log: log}
}

// GetProfile handles GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	u, err := h.svc.Profile(r.Context(), id.UserID, id.Email)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load profile")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, u)
}

// UpdateProfile handles PUT /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in finance.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}
	owner := userID(r)
	u, err := h.svc.UpdateProfile(r.Context(), owner, in, requestInfo(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to update profile")
		return
	}
	h.svc.Publish(owner, "users", realtime.ActionUpdate, u)
	middleware.WriteJSON(w, http.StatusOK, u)
}

// UploadAvatar handles PUT /api/profile/avatar with the image as the body.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "File storage is not configured")
		return
	}
	ext, ok := avatarTypes[r.Header.Get("Content-Type")]
	if !ok {
		middleware.WriteError(w, http.StatusUnsupportedMediaType, "Avatar must be a PNG, JPEG, WebP or GIF image")
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAvatarBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Avatar is too large")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Request body is required")
		return
	}

	ctx := r.Context()
	id, _ := auth.FromContext(ctx)
	owner := id.UserID
	if _, err := h.svc.Profile(ctx, owner, id.Email); err != nil {
		writeServiceError(w, r, err, "Failed to load profile")
		return
	}
	objectName := gcs.AvatarObjectName(owner, ext)
	if _, err := h.storage.Upload(ctx, objectName, r.Header.Get("Content-Type"), bytes.NewReader(data)); err != nil {
		h.log.Error().Err(err).Str("user_id", owner).Msg("Failed to upload avatar")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload avatar")
		return
	}

	url := h.storage.PublicURL(objectName)
	if err := h.svc.Store().SetAvatarURL(ctx, owner, url); err != nil {
		writeServiceError(w, r, err, "Failed to save avatar")
		return
	}
	h.svc.Track(ctx, owner, "profile.avatar_updated", "profile", owner, map[string]any{"bytes": len(data)}, requestInfo(r))

	h.log.Info().Str("user_id", owner).Int("bytes", len(data)).Msg("Avatar uploaded")
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"avatar_url": url})
}
