package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) welcome(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{Message: "Welcome to the dispatch job service."})
}

func (a *API) health(c *gin.Context) {
	if err := a.eng.Ping(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "job_types": a.eng.Registry().Names()})
}
