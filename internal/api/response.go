package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/wfunc/spin-engine/internal/errors"
	"github.com/wfunc/spin-engine/internal/middleware"
)

// Response 成功响应
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data, RequestID: middleware.GetRequestID(c)})
}

// fail 按错误码返回HTTP状态和统一错误体
func fail(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus(), apperrors.NewErrorResponse(appErr, middleware.GetRequestID(c)))
}

// failWith 在错误之外附带数据，校验不一致时返回对比结果
func failWith(c *gin.Context, err error, data interface{}) {
	appErr := apperrors.AsAppError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{
		"success":    false,
		"error":      appErr,
		"data":       data,
		"request_id": middleware.GetRequestID(c),
	})
}

// bindError 把绑定/校验错误转换为参数错误，列出失败的字段
func bindError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
		}
		return apperrors.Newf(apperrors.ErrInvalidParam, "字段校验失败: %s", strings.Join(fields, ", "))
	}
	return apperrors.Wrap(err, apperrors.ErrInvalidParam, "请求体格式错误")
}

// queryInt 读取整数查询参数，缺省时返回默认值
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Newf(apperrors.ErrInvalidParam, "%s 必须是整数", key)
	}
	return v, nil
}

func notFoundRoute(c *gin.Context) {
	fail(c, apperrors.Newf(apperrors.ErrNotFound, "接口 %s %s 不存在", c.Request.Method, c.Request.URL.Path))
}

func methodNotAllowed(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, apperrors.NewErrorResponse(
		apperrors.Newf(apperrors.ErrInvalidParam, "不支持的方法 %s", c.Request.Method),
		middleware.GetRequestID(c)))
}
