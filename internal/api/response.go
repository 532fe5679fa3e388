package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"

	"jobtracker/internal/api/middleware"
	"jobtracker/internal/errcode"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)         { Error(c, http.StatusUnauthorized, "unauthorized") }
func NotFound(c *gin.Context)             { Error(c, http.StatusNotFound, "not found") }
func Internal(c *gin.Context, msg string) { Error(c, http.StatusInternalServerError, msg) }

// ValidationFailed 以 {field: [messages]} 形式返回 400。
func ValidationFailed(c *gin.Context, v *errcode.ValidationError) {
	c.JSON(http.StatusBadRequest, v.Fields)
}

// respondError 将服务层错误映射为 HTTP 响应，未知错误只记录日志不外泄细节。
func respondError(c *gin.Context, err error) {
	if v, ok := errcode.AsValidation(err); ok {
		ValidationFailed(c, v)
		return
	}
	if errors.Is(err, errcode.ErrNotFound) {
		NotFound(c)
		return
	}
	middleware.LoggerFromContext(c).Error("request failed", slog.Any("error", err))
	Internal(c, "internal error")
}

// bindJSON 解码请求体。空请求体视为 {}；类型错误转换为字段错误。
func bindJSON(c *gin.Context, dst any) bool {
	err := json.NewDecoder(c.Request.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		ValidationFailed(c, errcode.Invalid(typeErr.Field, typeMismatchMessage(typeErr)))
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("JSON parse error - %s", err.Error())})
	return false
}

func typeMismatchMessage(err *json.UnmarshalTypeError) string {
	switch err.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "A valid integer is required."
	case reflect.String:
		return "Not a valid string."
	case reflect.Slice:
		return fmt.Sprintf("Expected a list of items but got type %q.", err.Value)
	default:
		return "Invalid value."
	}
}

// parseID 解析路径中的 :id。非数字 id 与不存在的记录一样返回 404。
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, strconv.IntSize)
	if err != nil || id == 0 {
		NotFound(c)
		return 0, false
	}
	return uint(id), true
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := value.(uint)
	if !ok || userID == 0 {
		return 0, false
	}
	return userID, true
}
