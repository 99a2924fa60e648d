package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storymill/dedup"
	"storymill/types"
)

// RegisterDedupRoutes registers deduplication service endpoints.
func RegisterDedupRoutes(r *gin.Engine) {
	g := r.Group("/api/dedup")
	g.POST("/run", handleRunDedup)
	g.GET("/capabilities", handleCapabilities)
}

// RunRequest carries one batch of candidate items plus optional overrides.
type RunRequest struct {
	Items   []types.Item      `json:"items" binding:"required"`
	Options *types.RunOptions `json:"options"`
}

// RunResponse returns the retained items and the run report.
type RunResponse struct {
	UniqueItems []types.Item  `json:"unique_items"`
	Report      *types.Report `json:"report"`
}

// handleRunDedup deduplicates a posted batch and returns the survivors plus
// an auditable report. Optional backends that are missing degrade the check
// set; the call itself always completes.
func handleRunDedup(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := dedup.ApplyOverrides(dedup.DefaultOptions(), req.Options)
	engine := dedup.New(opts)

	unique, report := engine.Deduplicate(req.Items)
	c.JSON(http.StatusOK, RunResponse{UniqueItems: unique, Report: report})
}

// CapabilitiesResponse reports which optional backends the service can use.
type CapabilitiesResponse struct {
	FuzzyAvailable    bool   `json:"fuzzy_available"`
	SemanticAvailable bool   `json:"semantic_available"`
	SemanticModel     string `json:"semantic_model,omitempty"`
}

func handleCapabilities(c *gin.Context) {
	engine := dedup.New(dedup.DefaultOptions())
	caps := engine.Capabilities()

	resp := CapabilitiesResponse{
		FuzzyAvailable:    caps.FuzzyAvailable,
		SemanticAvailable: caps.SemanticAvailable,
	}
	if provider := dedup.NewDefaultEmbeddingsProvider(""); provider != nil {
		resp.SemanticModel = provider.ModelName()
	}
	c.JSON(http.StatusOK, resp)
}
