package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobtracker/internal/metrics"
)

// entityService 是每个按用户隔离的实体服务共同的 CRUD 形状。
type entityService[In, View any] interface {
	Create(ctx context.Context, ownerID uint, in In) (*View, error)
	List(ctx context.Context, ownerID uint) ([]View, error)
	Get(ctx context.Context, ownerID, id uint) (*View, error)
	Update(ctx context.Context, ownerID, id uint, in In) (*View, error)
	Delete(ctx context.Context, ownerID, id uint) error
}

// EntityHandler 以 JSON 读写一个实体：In 为写入形状，View 为读取形状。
type EntityHandler[In, View any] struct {
	entity  string
	service entityService[In, View]
}

// NewEntityHandler 构造实体处理器，entity 用作指标标签。
func NewEntityHandler[In, View any](entity string, service entityService[In, View]) *EntityHandler[In, View] {
	return &EntityHandler[In, View]{entity: entity, service: service}
}

func (h *EntityHandler[In, View]) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	views, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *EntityHandler[In, View]) Create(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var in In
	if !bindJSON(c, &in) {
		return
	}
	view, err := h.service.Create(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordMutation(h.entity, "create")
	c.JSON(http.StatusCreated, view)
}

func (h *EntityHandler[In, View]) Get(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	view, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Update 按部分更新处理：请求体中缺省的字段保持不变。
func (h *EntityHandler[In, View]) Update(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var in In
	if !bindJSON(c, &in) {
		return
	}
	view, err := h.service.Update(c.Request.Context(), userID, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordMutation(h.entity, "update")
	c.JSON(http.StatusOK, view)
}

func (h *EntityHandler[In, View]) Delete(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordMutation(h.entity, "delete")
	c.Status(http.StatusNoContent)
}
