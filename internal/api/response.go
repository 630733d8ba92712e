package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the envelope of every JSON response.
type Body struct {
	Code int    `json:"code"`
	Data any    `json:"data"`
	Msg  string `json:"msg"`
}

func success(c *gin.Context, data any) {
	writeJSON(c, http.StatusOK, data, "")
}

func fail(c *gin.Context, status int, msg string) {
	writeJSON(c, status, gin.H{}, msg)
}

func writeJSON(c *gin.Context, status int, data any, msg string) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, Body{
		Code: status,
		Data: data,
		Msg:  msg,
	})
}
