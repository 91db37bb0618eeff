package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mindtrack-backend/internal/service"
)

// WellnessController serves insights, goals, progress, the dashboard and
// the downloadable report.
type WellnessController struct {
	Insights  service.InsightService
	Goals     service.GoalService
	Progress  service.ProgressService
	Dashboard service.DashboardService
	Reports   service.ReportService
}

func (wc *WellnessController) GetInsights(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	insights, err := wc.Insights.GetInsights(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, insights)
}

func (wc *WellnessController) GetLatestInsight(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	insight, err := wc.Insights.GetLatestInsight(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, insight)
}

func (wc *WellnessController) GenerateInsight(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	insight, err := wc.Insights.GenerateTrendInsight(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, insight)
}

func (wc *WellnessController) GetGoals(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	goals, err := wc.Goals.GetGoals(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goals)
}

func (wc *WellnessController) CreateGoal(c *gin.Context) {
	var req service.GoalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	goal, err := wc.Goals.CreateGoal(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

func (wc *WellnessController) UpdateGoal(c *gin.Context) {
	var req service.GoalUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	goal, err := wc.Goals.UpdateGoal(c.Request.Context(), userID, c.Param("goalId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (wc *WellnessController) GetProgress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a number"})
		return
	}
	entries, err := wc.Progress.GetProgress(c.Request.Context(), userID, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (wc *WellnessController) RecordProgress(c *gin.Context) {
	var req service.ProgressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	entry, err := wc.Progress.RecordProgress(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (wc *WellnessController) GetDashboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	dashboard, err := wc.Dashboard.GetDashboard(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// DownloadReport streams the wellness report as a PDF attachment.
func (wc *WellnessController) DownloadReport(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	pdf, err := wc.Reports.WellnessReport(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("mindtrack-report-%s.pdf", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
