package api

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jurisrank/jurisapi/internal/model"
)

// AnalysisHandler 法律分析 API 处理器
//
// These handlers are deliberately thin response generators; all the real
// engineering lives in the admission engine that fronts them.
type AnalysisHandler struct{}

// NewAnalysisHandler 创建分析处理器
func NewAnalysisHandler() *AnalysisHandler {
	return &AnalysisHandler{}
}

// ConstitutionalAnalysis 宪法分析
func (h *AnalysisHandler) ConstitutionalAnalysis(c *gin.Context) {
	var req struct {
		CaseFacts     string `json:"case_facts"`
		LegalQuestion string `json:"legal_question"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, model.ErrorResponse{
			Error: model.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "Invalid request: " + err.Error(),
				Type:    "invalid_request_error",
			},
		})
		return
	}

	var missing []string
	if strings.TrimSpace(req.CaseFacts) == "" {
		missing = append(missing, "case_facts")
	}
	if strings.TrimSpace(req.LegalQuestion) == "" {
		missing = append(missing, "legal_question")
	}
	if len(missing) > 0 {
		c.JSON(400, model.ErrorResponse{
			Error: model.ErrorDetail{
				Code:    "MISSING_REQUIRED_FIELDS",
				Message: "Missing required fields: " + strings.Join(missing, ", "),
				Type:    "invalid_request_error",
			},
		})
		return
	}

	tier := model.TierDefault
	if info, ok := clientInfo(c); ok {
		tier = info.Tier
	}

	c.JSON(200, gin.H{
		"success": true,
		"data": gin.H{
			"analysis_id": analysisID("const_analysis", req.CaseFacts),
			"constitutional_assessment": gin.H{
				"is_constitutional":    true,
				"confidence_score":     0.85,
				"constitutional_basis": []string{"Artículo 18 CN", "Artículo 19 CN"},
				"potential_violations": []string{},
				"precedent_support":    []string{"Caso Bazterrica", "Caso Arriola"},
			},
			"legal_reasoning": gin.H{
				"primary_arguments": []string{
					"Principio de legalidad constitucional",
					"Garantías del debido proceso",
				},
				"supporting_precedents": []gin.H{
					{
						"case_name":       "Bazterrica, Gustavo c/ Estado Nacional",
						"citation":        "Fallos 308:1392",
						"relevance_score": 0.92,
						"key_principle":   "Principio de reserva",
					},
				},
			},
			"metadata": gin.H{
				"analysis_timestamp": time.Now().UTC().Format(time.RFC3339),
				"model_version":      "JurisRank-v0.3.0",
				"rate_limit_tier":    tier,
			},
		},
	})
}

// SearchPrecedents 判例检索
func (h *AnalysisHandler) SearchPrecedents(c *gin.Context) {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(400, model.ErrorResponse{
			Error: model.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "Query parameter is required",
				Type:    "invalid_request_error",
			},
		})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	results := []gin.H{
		{
			"case_id":         "case_001",
			"case_name":       "Bazterrica, Gustavo c/ Estado Nacional",
			"citation":        "Fallos 308:1392",
			"court":           "Corte Suprema de Justicia",
			"date_decided":    "1986-08-29",
			"jurisdiction":    "Nacional",
			"relevance_score": 0.95,
			"authority_score": 0.98,
			"summary":         "Leading case sobre principio de reserva y tenencia personal",
		},
		{
			"case_id":         "case_002",
			"case_name":       "Arriola, Sebastián c/ Estado Nacional",
			"citation":        "Fallos 332:1963",
			"court":           "Corte Suprema de Justicia",
			"date_decided":    "2009-08-25",
			"jurisdiction":    "Nacional",
			"relevance_score": 0.88,
			"authority_score": 0.95,
			"summary":         "Evolución jurisprudencial del principio de reserva",
		},
	}
	if req.Limit < len(results) {
		results = results[:req.Limit]
	}

	c.JSON(200, gin.H{
		"success": true,
		"data": gin.H{
			"results": results,
			"metadata": gin.H{
				"total_results":        len(results),
				"query_interpretation": "Constitutional precedents for: " + req.Query,
			},
		},
	})
}

// EnhanceDocument 文书增强
func (h *AnalysisHandler) EnhanceDocument(c *gin.Context) {
	var req struct {
		DocumentText    string `json:"document_text"`
		EnhancementType string `json:"enhancement_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.DocumentText) == "" {
		c.JSON(400, model.ErrorResponse{
			Error: model.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "document_text parameter is required",
				Type:    "invalid_request_error",
			},
		})
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"data": gin.H{
			"enhanced_document": gin.H{
				"enhanced_text": req.DocumentText + "\n\n[Enhanced with legal citations and improvements]",
				"suggested_citations": []gin.H{
					{
						"original_text":       "principio constitucional",
						"suggested_citation":  "Ver Fallos 308:1392, \"Bazterrica\"",
						"authority_level":     0.95,
						"verification_status": "verified",
					},
				},
			},
			"analysis": gin.H{
				"document_score":   0.82,
				"legal_strength":   0.78,
				"citation_quality": 0.85,
			},
			"metadata": gin.H{
				"enhancement_timestamp": time.Now().UTC().Format(time.RFC3339),
				"model_version":         "JurisRank-Enhance-v0.3.0",
			},
		},
	})
}

// analysisID 对输入内容生成稳定的分析 ID
func analysisID(prefix, content string) string {
	h := fnv.New32a()
	if len(content) > 50 {
		content = content[:50]
	}
	h.Write([]byte(content))
	return fmt.Sprintf("%s_%05d", prefix, h.Sum32()%100000)
}
