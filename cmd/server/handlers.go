package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-apartment-scout/internal/filter"
	"go-apartment-scout/internal/models"
	"go-apartment-scout/internal/pipeline"
)

type parseRequest struct {
	Text string `json:"text" binding:"required"`
}

type evaluateRequest struct {
	Text   string `json:"text" binding:"required"`
	PostID string `json:"post_id"`
}

type evaluateResponse struct {
	Parsed       models.ParsedListing `json:"parsed"`
	Result       models.FilterResult  `json:"result"`
	ShouldNotify bool                 `json:"should_notify"`
	Duplicate    bool                 `json:"duplicate"`
	DuplicateOf  string               `json:"duplicate_of,omitempty"`
}

func newRouter(p pipeline.ListingParser, d pipeline.Deduper, criteria filter.Criteria, minScore float64) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Apartment scout API is running!",
			"status":  "healthy",
		})
	})

	r.POST("/parse", func(c *gin.Context) {
		var req parseRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}
		c.JSON(http.StatusOK, p.Parse(c.Request.Context(), req.Text))
	})

	r.POST("/evaluate", func(c *gin.Context) {
		var req evaluateRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}

		ctx := c.Request.Context()
		resp := evaluateResponse{}
		if d != nil {
			dup, existing, err := d.IsDuplicate(ctx, req.Text, req.PostID)
			if err != nil {
				log.Printf("❌ Dedup check failed: %v", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
				return
			}
			resp.Duplicate = dup
			if existing != nil {
				resp.DuplicateOf = existing.ID
			}
		}

		resp.Parsed = p.Parse(ctx, req.Text)
		resp.Result = filter.MatchesCriteria(resp.Parsed, criteria)
		resp.ShouldNotify = !resp.Duplicate && filter.ShouldNotify(resp.Parsed, resp.Result, minScore)
		c.JSON(http.StatusOK, resp)
	})

	return r
}
