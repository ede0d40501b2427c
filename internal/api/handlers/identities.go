package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/presence/internal/match"
	"github.com/your-org/presence/internal/models"
	"github.com/your-org/presence/pkg/dto"
)

// IdentityStore is what the handlers need from the identity store.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, subjectID, name, personCode string, descriptor []float32) (*models.Identity, error)
	GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	ListIdentities(ctx context.Context) ([]models.Identity, error)
	CountIdentities(ctx context.Context) (int, error)
	LoadGallery(ctx context.Context) ([]models.GalleryEntry, error)
}

type IdentityHandler struct {
	db       IdentityStore
	resolver *match.Resolver
	dim      int
}

func NewIdentityHandler(db IdentityStore, resolver *match.Resolver, descriptorDim int) *IdentityHandler {
	return &IdentityHandler{db: db, resolver: resolver, dim: descriptorDim}
}

func (h *IdentityHandler) Register(c *gin.Context) {
	var req dto.RegisterIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Descriptor) != h.dim {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": fmt.Sprintf("descriptor must have %d elements, got %d", h.dim, len(req.Descriptor)),
		})
		return
	}

	ident, err := h.db.CreateIdentity(c.Request.Context(), req.SubjectID, req.Name, req.PersonCode, req.Descriptor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// The registration is committed, so the fresh snapshot includes it.
	if gallery, err := h.db.LoadGallery(c.Request.Context()); err == nil {
		h.resolver.SetGallery(gallery)
	}

	c.JSON(http.StatusCreated, dto.IdentityResponse{
		ID:         ident.ID,
		SubjectID:  ident.SubjectID,
		Name:       ident.Name,
		PersonCode: ident.PersonCode,
		CreatedAt:  ident.CreatedAt.Format(time.RFC3339),
	})
}

func (h *IdentityHandler) List(c *gin.Context) {
	identities, err := h.db.ListIdentities(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.IdentityResponse, 0, len(identities))
	for _, ident := range identities {
		resp = append(resp, dto.IdentityResponse{
			ID:         ident.ID,
			SubjectID:  ident.SubjectID,
			Name:       ident.Name,
			PersonCode: ident.PersonCode,
			CreatedAt:  ident.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, dto.IdentityListResponse{Identities: resp, Total: len(resp)})
}

func (h *IdentityHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	ident, err := h.db.GetIdentity(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ident == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
		return
	}

	c.JSON(http.StatusOK, dto.IdentityResponse{
		ID:         ident.ID,
		SubjectID:  ident.SubjectID,
		Name:       ident.Name,
		PersonCode: ident.PersonCode,
		CreatedAt:  ident.CreatedAt.Format(time.RFC3339),
	})
}
