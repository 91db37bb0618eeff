package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"mindtrack-backend/internal/catalog"
	"mindtrack-backend/internal/model"
	"mindtrack-backend/internal/repository"
)

type ReportService interface {
	// WellnessReport renders the user's current state as a PDF document.
	WellnessReport(ctx context.Context, userID string) ([]byte, error)
}

type reportService struct {
	repos   *repository.Repositories
	catalog *catalog.Catalog
	now     func() time.Time
}

func NewReportService(repos *repository.Repositories, c *catalog.Catalog) ReportService {
	if c == nil {
		c = catalog.Default()
	}
	return &reportService{repos: repos, catalog: c, now: time.Now}
}

func (s *reportService) WellnessReport(ctx context.Context, userID string) ([]byte, error) {
	user, err := s.repos.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	assessments, err := s.repos.Assessments.GetLatestByPlatform(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assessments: %w", err)
	}
	insight, err := s.repos.Insights.GetLatestInsight(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch insight: %w", err)
	}
	goals, err := s.repos.Goals.GetGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch goals: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "MindTrack Wellness Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 11)
	name := user.Email
	if user.FirstName != "" {
		name = user.FirstName + " " + user.LastName
	}
	pdf.Cell(0, 8, tr(fmt.Sprintf("%s - %s", name, s.now().Format("2 January 2006"))))
	pdf.Ln(14)

	section := func(title string) {
		pdf.SetFont("Arial", "B", 14)
		pdf.Cell(0, 8, title)
		pdf.Ln(10)
		pdf.SetFont("Arial", "", 11)
	}

	section("Platform scores")
	if len(assessments) == 0 {
		pdf.MultiCell(0, 6, "No assessments completed yet.", "", "L", false)
	} else {
		pdf.SetFont("Arial", "B", 10)
		for _, h := range []string{"Platform", "Overall", "Mood", "Usage", "Comparison", "Risk"} {
			pdf.CellFormat(30, 7, h, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, a := range assessments {
			row := []string{
				tr(s.catalog.DisplayName(a.Platform)),
				fmt.Sprintf("%.1f", a.OverallScore),
				fmt.Sprintf("%.1f", a.MoodScore),
				fmt.Sprintf("%.1f", a.UsageScore),
				fmt.Sprintf("%.1f", a.ComparisonScore),
				a.RiskLevel,
			}
			for _, cell := range row {
				pdf.CellFormat(30, 7, cell, "1", 0, "C", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}
	pdf.Ln(8)

	section("Latest insight")
	if insight == nil {
		pdf.MultiCell(0, 6, "No insight generated yet.", "", "L", false)
	} else {
		pdf.MultiCell(0, 6, tr(insight.KeyInsight), "", "L", false)
	}
	pdf.Ln(8)

	section("Goals")
	if len(goals) == 0 {
		pdf.MultiCell(0, 6, "No goals set yet.", "", "L", false)
	}
	for _, g := range goals {
		pdf.MultiCell(0, 6, tr(goalLine(g)), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func goalLine(g model.UserGoal) string {
	status := "[ ]"
	if g.IsCompleted {
		status = "[x]"
	}
	return fmt.Sprintf("%s %s (%d/%d)", status, g.Title, g.CurrentValue, g.TargetValue)
}
