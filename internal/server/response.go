package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every ops endpoint answers with.
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

// OK answers 200 with data in the standard envelope.
func OK(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{} // empty object instead of null
	}
	c.JSON(http.StatusOK, Response{Code: 0, Msg: "success", Data: data})
}

// Fail answers status with the error message in the standard envelope.
func Fail(c *gin.Context, status int, err error) {
	c.JSON(status, Response{Code: status, Msg: err.Error(), Data: gin.H{}})
}
