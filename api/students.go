package api

import "github.com/bigredeye/gradebook/internal/analytics"

type StudentsRequest struct {
	StudentID string `form:"studentID"`
	Class     string `form:"class"`
	ExamName  string `form:"examName"`
}

type AnalyzeRequest struct {
	Class    string `json:"class" binding:"required"`
	ExamName string `json:"examName" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
}

type AnalyzeResponse = analytics.SubjectReport

type ClassAnalysisRequest struct {
	ExamName string `json:"examName" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
}

type ClassAnalysisResponse = []analytics.ClassReport

type SchoolAnalysisRequest struct {
	ExamName string `json:"examName" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
}

type SchoolAnalysisResponse = analytics.SchoolReport

type PerformanceStatisticsRequest struct {
	Subject string `json:"subject" binding:"required"`
}

type PerformanceStatisticsResponse = analytics.PerformanceReport
