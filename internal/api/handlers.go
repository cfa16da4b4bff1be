package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"microurl/internal/dto"
	"microurl/internal/repo"
	"microurl/internal/service"
	"microurl/pkg/validator"
)

// clickTimeout bounds the detached click-recording write so an abandoned
// goroutine cannot pin a store connection forever.
const clickTimeout = 5 * time.Second

type handlers struct {
	svc     *service.Service
	baseURL string
	log     *zerolog.Logger
}

func (h *handlers) CreateShortURL(c *gin.Context) {
	var req dto.CreateShortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error().Msgf("Invalid request body: %v", err)
		dto.BadResponseError(c, dto.FieldBadFormat, "Invalid request body")
		return
	}

	if err := validator.Validate(c.Request.Context(), req); err != nil {
		dto.BadResponseError(c, dto.FieldIncorrect, err.Error())
		return
	}

	u, err := h.svc.Create(c.Request.Context(), req.OriginalURL, req.CustomSlug, req.ExpiresAt)
	switch {
	case err == nil:
		dto.SuccessCreatedResponse(c, dto.FromURL(u, h.baseURL))
	case errors.Is(err, service.ErrValidation):
		dto.BadResponseError(c, dto.FieldIncorrect, err.Error())
	case errors.Is(err, repo.ErrSlugTaken):
		dto.SlugConflictError(c)
	default:
		h.log.Error().Err(err).Msg("Failed to create short URL")
		dto.InternalServerError(c)
	}
}

func (h *handlers) Redirect(c *gin.Context) {
	slug := c.Param("slug")

	target, err := h.svc.Resolve(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			dto.SlugNotFoundError(c)
			return
		}
		h.log.Error().Err(err).Str("slug", slug).Msg("Failed to resolve slug")
		dto.InternalServerError(c)
		return
	}

	h.recordClick(slug, service.ClickInput{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		Referrer:  c.GetHeader("Referer"),
	})

	c.Redirect(http.StatusTemporaryRedirect, target)
}

// recordClick logs the visit off the redirect critical path. Failures are
// logged, never surfaced to the visitor.
func (h *handlers) recordClick(slug string, in service.ClickInput) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.log.Error().Msgf("panic in recordClick: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), clickTimeout)
		defer cancel()

		if _, err := h.svc.RecordClick(ctx, slug, in); err != nil {
			h.log.Warn().Err(err).Str("slug", slug).Msg("Failed to record click")
		}
	}()
}

func (h *handlers) ListURLs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	p, err := h.svc.List(c.Request.Context(), page, perPage)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list URLs")
		dto.InternalServerError(c)
		return
	}

	dto.SuccessResponse(c, dto.FromPage(p, h.baseURL))
}

func (h *handlers) DeleteURL(c *gin.Context) {
	slug := c.Param("slug")

	err := h.svc.Delete(c.Request.Context(), slug)
	switch {
	case err == nil:
		dto.SuccessResponse(c, gin.H{"message": "short URL deleted"})
	case errors.Is(err, repo.ErrNotFound):
		dto.SlugNotFoundError(c)
	default:
		h.log.Error().Err(err).Str("slug", slug).Msg("Failed to delete short URL")
		dto.InternalServerError(c)
	}
}

func (h *handlers) URLStats(c *gin.Context) {
	slug := c.Param("slug")

	stats, err := h.svc.Stats(c.Request.Context(), slug)
	switch {
	case err == nil:
		dto.SuccessResponse(c, stats)
	case errors.Is(err, repo.ErrNotFound):
		dto.SlugNotFoundError(c)
	default:
		h.log.Error().Err(err).Str("slug", slug).Msg("Failed to aggregate stats")
		dto.InternalServerError(c)
	}
}

func (h *handlers) Health(c *gin.Context) {
	storeOK, cacheOK := h.svc.Health(c.Request.Context())

	status := "healthy"
	code := http.StatusOK
	if !storeOK {
		// The cache is advisory; only the store decides health.
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, dto.HealthResponse{
		Status: status,
		Store:  connState(storeOK),
		Cache:  connState(cacheOK),
	})
}

func connState(ok bool) string {
	if ok {
		return "connected"
	}
	return "disconnected"
}
