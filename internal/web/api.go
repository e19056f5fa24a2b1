package web

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"

	"github.com/bigredeye/gradebook/api"
	"github.com/bigredeye/gradebook/internal/analytics"
	"github.com/bigredeye/gradebook/internal/ingest"
	lf "github.com/bigredeye/gradebook/internal/logfield"
	"github.com/bigredeye/gradebook/internal/models"
)

const uploadField = "file"

var errNoFile = errors.New("request has no file field")

type studentsService struct {
	webService
}

func setupStudentsService(server *server, r *gin.RouterGroup) {
	s := studentsService{webService{server, server.config, server.logger.Named("students")}}

	students := r.Group("/students", server.validateSession)
	students.POST("/upload", s.upload)
	students.GET("", s.list)
	students.POST("/analyze", s.analyze)
	students.POST("/class-analysis", s.classAnalysis)
	students.POST("/school-analysis", s.schoolAnalysis)
	students.POST("/performance-statistics", s.performanceStatistics)
}

// nextFilePart skips form fields until the uploaded file.
func nextFilePart(c *gin.Context) (io.Reader, string, error) {
	reader, err := c.Request.MultipartReader()
	if err != nil {
		return nil, "", err
	}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil, "", errNoFile
		}
		if err != nil {
			return nil, "", err
		}
		if part.FormName() == uploadField && part.FileName() != "" {
			return part, part.FileName(), nil
		}
	}
}

func (s studentsService) upload(c *gin.Context) {
	user, _ := currentUser(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.server.maxUploadSize)

	// Nothing reached the pipeline yet, so there is no upload and no log entry.
	body, fileName, err := nextFilePart(c)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, api.MsgServerError, pkgerrors.Wrap(err, "Failed to read multipart body"))
		return
	}
	s.log.Info("Receiving upload", lf.FileName(fileName), lf.UserID(user.ID))

	// Rows already handed to the store are persisted even if the client goes away.
	outcome, err := s.server.pipeline.Ingest(context.Background(), ingest.Upload{
		Body:     body,
		FileName: fileName,
		Uploader: user.ID,
	})
	if err != nil {
		s.fail(c, http.StatusInternalServerError, api.MsgServerError, err)
		return
	}
	if !outcome.Successful() {
		s.fail(c, http.StatusInternalServerError, api.MsgProcessingError, errors.New(outcome.Summary()))
		return
	}

	c.JSON(http.StatusOK, &api.Message{Msg: api.MsgFileProcessed})
}

func (s studentsService) list(c *gin.Context) {
	req := api.StudentsRequest{}
	if err := c.ShouldBindQuery(&req); err != nil {
		s.fail(c, http.StatusBadRequest, api.MsgInvalidRequest, err)
		return
	}

	scores, err := s.server.query.Find(c, models.Filter{
		StudentID: req.StudentID,
		Class:     req.Class,
		ExamName:  req.ExamName,
	})
	if err != nil {
		s.fail(c, http.StatusInternalServerError, api.MsgServerError, err)
		return
	}
	c.JSON(http.StatusOK, scores)
}

// reply maps analytics results onto the wire.
func (s studentsService) reply(c *gin.Context, report interface{}, err error) {
	if errors.Is(err, analytics.ErrNoData) {
		c.JSON(http.StatusNotFound, &api.Message{Msg: api.MsgNoData})
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, api.MsgServerError, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s studentsService) analyze(c *gin.Context) {
	req := api.AnalyzeRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, api.MsgInvalidRequest, err)
		return
	}

	report, err := s.server.analytics.SubjectAnalysis(c, req.Class, req.ExamName, req.Subject)
	s.reply(c, report, err)
}

func (s studentsService) classAnalysis(c *gin.Context) {
	req := api.ClassAnalysisRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, api.MsgInvalidRequest, err)
		return
	}

	reports, err := s.server.analytics.ClassAnalysis(c, req.ExamName, req.Subject)
	s.reply(c, reports, err)
}

func (s studentsService) schoolAnalysis(c *gin.Context) {
	req := api.SchoolAnalysisRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, api.MsgInvalidRequest, err)
		return
	}

	report, err := s.server.analytics.SchoolAnalysis(c, req.ExamName, req.Subject)
	s.reply(c, report, err)
}

func (s studentsService) performanceStatistics(c *gin.Context) {
	req := api.PerformanceStatisticsRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, api.MsgInvalidRequest, err)
		return
	}

	report, err := s.server.analytics.PerformanceStatistics(c, req.Subject)
	s.reply(c, report, err)
}
