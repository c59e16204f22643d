package handlers

import (
	"github.com/gin-gonic/gin"
)

func getUserAndRole(c *gin.Context) (userID, role string) {
	if v, ok := c.Get("user_id"); ok {
		userID, _ = v.(string)
	}
	if v, ok := c.Get("role"); ok {
		role, _ = v.(string)
	}
	return
}
