package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viralclips/dispatch/download"
)

func (a *API) validateURL(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		var req ValidateURLRequest
		if err := c.ShouldBind(&req); err == nil {
			url = req.URL
		}
	}

	if !download.IsYouTubeURL(url) {
		c.JSON(http.StatusBadRequest, ValidateURLResponse{Valid: false, Message: "Invalid YouTube URL."})
		return
	}
	c.JSON(http.StatusOK, ValidateURLResponse{Valid: true, Message: "URL is valid."})
}

func (a *API) preview(c *gin.Context) {
	url := c.Query("url")
	p, err := a.previewer.Preview(c.Request.Context(), url)
	switch {
	case errors.Is(err, download.ErrNotYouTube):
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "Invalid YouTube URL."})
		return
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, MessageResponse{Message: "Could not fetch video details."})
		return
	}
	c.JSON(http.StatusOK, p)
}
