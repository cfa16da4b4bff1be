package dto

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"microurl/internal/service"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	SlugAlreadyExists = "SLUG_ALREADY_EXISTS"
	SlugNotFound      = "SLUG_NOT_FOUND"
)

type CreateShortRequest struct {
	OriginalURL string     `json:"original_url" validate:"required,max=2048,url"`
	CustomSlug  string     `json:"custom_slug,omitempty" validate:"omitempty,slug"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type ShortURLResponse struct {
	ID          int64      `json:"id"`
	OriginalURL string     `json:"original_url"`
	Slug        string     `json:"slug"`
	ShortURL    string     `json:"short_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	ClickCount  int64      `json:"click_count"`
}

type ListResponse struct {
	URLs    []ShortURLResponse `json:"urls"`
	Total   int64              `json:"total"`
	Page    int                `json:"page"`
	PerPage int                `json:"per_page"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Cache  string `json:"cache"`
}

type Response struct {
	Status string      `json:"status"`
	Error  *Error      `json:"error,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

// FromURL shapes a service URL for the wire, composing the public short link
// from the configured base URL.
func FromURL(u *service.URL, baseURL string) ShortURLResponse {
	return ShortURLResponse{
		ID:          u.ID,
		OriginalURL: u.OriginalURL,
		Slug:        u.Slug,
		ShortURL:    baseURL + "/s/" + u.Slug,
		CreatedAt:   u.CreatedAt,
		ExpiresAt:   u.ExpiresAt,
		IsActive:    u.IsActive,
		ClickCount:  u.ClickCount,
	}
}

// FromPage shapes one listing page for the wire.
func FromPage(p *service.Page, baseURL string) ListResponse {
	urls := make([]ShortURLResponse, 0, len(p.URLs))
	for i := range p.URLs {
		urls = append(urls, FromURL(&p.URLs[i], baseURL))
	}

	return ListResponse{
		URLs:    urls,
		Total:   p.Total,
		Page:    p.Page,
		PerPage: p.PerPage,
	}
}

func BadResponseError(c *gin.Context, code, desc string) {
	c.JSON(http.StatusBadRequest, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func InternalServerError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func SlugConflictError(c *gin.Context) {
	c.JSON(http.StatusConflict, Response{
		Status: "error",
		Error: &Error{
			Code: SlugAlreadyExists,
			Desc: "Requested slug is already taken",
		},
	})
}

func SlugNotFoundError(c *gin.Context) {
	c.JSON(http.StatusNotFound, Response{
		Status: "error",
		Error: &Error{
			Code: SlugNotFound,
			Desc: "Short link not found",
		},
	})
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Status: "ok",
		Data:   data,
	})
}
