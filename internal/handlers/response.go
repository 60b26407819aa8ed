package handlers

import (
	"github.com/gin-gonic/gin"
)

// DetailResponse is the error payload shape for every non-2xx response.
type DetailResponse struct {
	Detail string `json:"detail"`
}

func RespondDetail(c *gin.Context, status int, detail string) {
	c.JSON(status, DetailResponse{Detail: detail})
}
