package reviews

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"classreviews/internal/blob"
	"classreviews/internal/board"
	"classreviews/pkg/models"
)

// ReviewerHeader optionally carries a per-browser identity for the reaction
// ledger. Without it every request acts as the shared identity.
const ReviewerHeader = "X-Reviewer-ID"

type Handler struct {
	Service      *Service
	SharedUserID string
	MaxUpload    int64
}

func NewHandler(svc *Service, sharedUserID string) *Handler {
	return &Handler{Service: svc, SharedUserID: sharedUserID, MaxUpload: blob.DefaultMaxBytes}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/categories", h.categories)
	rg.GET("/reviews", h.list)
	rg.POST("/reviews", h.create)
	rg.PATCH("/reviews/:id", h.edit)
	rg.DELETE("/reviews/:id", h.delete)
	rg.POST("/reviews/:id/reactions", h.react)
}

func (h *Handler) categories(c *gin.Context) {
	reactions := make([]string, 0, models.NumReactionKinds)
	for _, k := range models.ReactionKinds() {
		reactions = append(reactions, k.String())
	}
	c.JSON(http.StatusOK, gin.H{
		"categories": models.Categories,
		"filters":    append([]string{board.FilterAll}, categoryNames()...),
		"reactions":  reactions,
	})
}

func (h *Handler) list(c *gin.Context) {
	category := strings.TrimSpace(c.DefaultQuery("category", board.FilterAll))
	sort, ok := board.ParseSortMode(c.Query("sort"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sort must be Recent or Popular"})
		return
	}

	cards := h.Service.Board(category, sort)
	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"sort":     sort,
		"total":    len(cards),
		"items":    cards,
	})
}

func (h *Handler) create(c *gin.Context) {
	var (
		draft board.Draft
		img   *Image
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		draft = board.Draft{
			Content:  c.PostForm("content"),
			Category: c.PostForm("category"),
			Nickname: c.PostForm("nickname"),
		}
		fh, err := c.FormFile("image")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload"})
			return
		}
		if fh != nil {
			data, err := readUpload(fh, h.MaxUpload)
			if err != nil {
				writeError(c, board.Invalid("image", board.ErrInvalidImage))
				return
			}
			img = &Image{Data: data}
		}
	} else if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	review, err := h.Service.Submit(c.Request.Context(), draft, img)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, board.NewCard(review))
}

type editReq struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

func (h *Handler) edit(c *gin.Context) {
	var req editReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	review, err := h.Service.Edit(c.Request.Context(), c.Param("id"), req.Content, req.Category)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, board.NewCard(review))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

type reactReq struct {
	Kind   string `json:"kind"`
	UserID string `json:"user_id"`
}

func (h *Handler) react(c *gin.Context) {
	var req reactReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	kind, ok := models.ParseReactionKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if !ok {
		writeError(c, board.Invalid("kind", board.ErrUnknownReaction))
		return
	}

	review, outcome, err := h.Service.React(c.Request.Context(), c.Param("id"), h.userID(c, req.UserID), kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"outcome": outcome,
		"review":  board.NewCard(review),
	})
}

func (h *Handler) userID(c *gin.Context, fromBody string) string {
	if id := strings.TrimSpace(c.GetHeader(ReviewerHeader)); id != "" {
		return id
	}
	if id := strings.TrimSpace(fromBody); id != "" {
		return id
	}
	return h.SharedUserID
}

func writeError(c *gin.Context, err error) {
	var ve *board.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "rule": ve.Rule()})
	case errors.Is(err, board.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, board.ErrInvalidReference):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case board.IsPersistence(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func readUpload(fh *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, blob.ErrImageTooLarge
	}
	return data, nil
}

func categoryNames() []string {
	out := make([]string, 0, len(models.Categories))
	for _, c := range models.Categories {
		out = append(out, string(c))
	}
	return out
}
