package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/storage"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

const uploadsPrefix = "/api/uploads/"

// UploadHandler stores and serves resolution proof images.
type UploadHandler struct {
	store    storage.ProofStore
	maxBytes int64
}

// NewUploadHandler constructs handler.
func NewUploadHandler(store storage.ProofStore, maxBytes int64) *UploadHandler {
	return &UploadHandler{store: store, maxBytes: maxBytes}
}

// Upload POST /api/upload. Expects a multipart "image" field.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("image")
	if err != nil {
		return apperrors.NewValidationError("image file required", nil)
	}
	if h.maxBytes > 0 && header.Size > h.maxBytes {
		return apperrors.NewValidationError("image too large", map[string]any{"max_bytes": h.maxBytes})
	}

	file, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable upload", nil)
	}
	defer file.Close()

	proof, err := h.store.Put(c.UserContext(), user.ID, header.Filename, file, header.Size)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return apperrors.NewValidationError("images only", map[string]any{"accepted": []string{"jpg", "jpeg", "png"}})
		}
		return apperrors.NewInternalError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.UploadResponse{
		Key:         proof.Key,
		URL:         uploadsPrefix + proof.Key,
		ContentType: proof.ContentType,
		Size:        proof.Size,
	}})
}

// Serve GET /api/uploads/*.
func (h *UploadHandler) Serve(c *fiber.Ctx) error {
	key := c.Params("*")
	if key == "" {
		return apperrors.NewNotFound("proof", nil)
	}
	body, proof, err := h.store.Open(c.UserContext(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFound("proof", map[string]any{"key": key})
		}
		return apperrors.NewInternalError(err)
	}
	c.Set(fiber.HeaderContentType, proof.ContentType)
	return c.SendStream(body, int(proof.Size))
}
