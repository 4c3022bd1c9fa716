package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope for every API reply.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error codes carried in Response.Code. Zero is success.
const (
	CodeBadRequest = 40000
	CodeNotFound   = 40400
	CodeInternal   = 50000
)

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func failure(c *gin.Context, httpCode, errCode int, message string) {
	c.JSON(httpCode, Response{
		Code:    errCode,
		Message: message,
	})
}
