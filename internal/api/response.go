package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/easeaico/companion-chat/internal/errors"
)

// Envelope wraps every HTTP and websocket response.
type Envelope struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Code      int       `json:"code"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, successEnvelope(c, http.StatusOK, data, ""))
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, successEnvelope(c, http.StatusCreated, data, "创建成功"))
}

func successEnvelope(c *gin.Context, code int, data any, message string) Envelope {
	return Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Code:      code,
		Timestamp: time.Now(),
		RequestID: c.GetString(requestIDKey),
	}
}

// fail writes the error envelope. Internal errors are logged in full and
// answered with a generic message.
func fail(c *gin.Context, err error) {
	env := errorEnvelope(c, err)
	c.AbortWithStatusJSON(env.Code, env)
}

func errorEnvelope(c *gin.Context, err error) Envelope {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err.Error(),
		)
	}

	env := Envelope{
		Success:   false,
		Message:   apperrors.PublicMessage(err),
		Code:      status,
		Timestamp: time.Now(),
		RequestID: c.GetString(requestIDKey),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && len(appErr.Fields) > 0 {
		env.Data = appErr.Fields
	}
	return env
}

func badRequest(message string) error {
	return apperrors.NewValidationError(message, nil)
}

// idParam parses a positive int64 path parameter.
func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewFieldError(name, "无效的ID")
	}
	return id, nil
}

// intQuery parses an optional integer query parameter; absent yields 0.
func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewFieldError(name, "必须是整数")
	}
	return n, nil
}

func bindJSON(c *gin.Context, target any) error {
	if err := c.ShouldBindJSON(target); err != nil {
		return badRequest("请求参数格式错误")
	}
	return nil
}
