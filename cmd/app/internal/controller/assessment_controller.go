package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mindtrack-backend/internal/catalog"
	"mindtrack-backend/internal/service"
)

type AssessmentController struct {
	AssessmentService service.AssessmentService
	Catalog           *catalog.Catalog
}

func NewAssessmentController(assessmentService service.AssessmentService, c *catalog.Catalog) *AssessmentController {
	return &AssessmentController{AssessmentService: assessmentService, Catalog: c}
}

type platformSummary struct {
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	QuestionCount int    `json:"question_count"`
}

// GetPlatforms lists the platforms an assessment can be taken for.
func (ac *AssessmentController) GetPlatforms(c *gin.Context) {
	platforms := ac.Catalog.Platforms()
	out := make([]platformSummary, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, platformSummary{
			Name:          string(p.Name),
			DisplayName:   p.DisplayName,
			QuestionCount: len(p.Questions),
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetQuestions returns the ordered questionnaire of one platform.
func (ac *AssessmentController) GetQuestions(c *gin.Context) {
	def, ok := ac.Catalog.Platform(c.Param("platform"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unsupported platform"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"platform":     def.Name,
		"display_name": def.DisplayName,
		"questions":    def.Questions,
	})
}

func (ac *AssessmentController) SubmitAssessment(c *gin.Context) {
	var req struct {
		Platform  string                 `json:"platform" binding:"required"`
		Responses map[string]interface{} `json:"responses" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: platform and responses are required"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := ac.AssessmentService.SubmitAssessment(c.Request.Context(), userID, req.Platform, req.Responses)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (ac *AssessmentController) GetAssessments(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	assessments, err := ac.AssessmentService.GetAssessments(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessments)
}

// GetLatestAssessment serves both /latest and /latest/:platform.
func (ac *AssessmentController) GetLatestAssessment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	assessment, err := ac.AssessmentService.GetLatestAssessment(c.Request.Context(), userID, c.Param("platform"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}
