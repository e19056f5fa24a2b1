package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bigredeye/gradebook/api"
	"github.com/bigredeye/gradebook/internal/models"
)

type adminService struct {
	webService
}

func setupAdminService(server *server, r *gin.RouterGroup) {
	s := adminService{webService{server, server.config, server.logger.Named("admin")}}

	admin := r.Group("/admin", server.validateSession)
	admin.GET("/logs", s.logs)
	admin.GET("/teachers", s.teachers)
	admin.GET("/stats", s.stats)
}

func (s adminService) logs(c *gin.Context) {
	logs, err := s.server.store.ListUploadLogs(c)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, api.MsgServerError, err)
		return
	}

	entries := make([]api.UploadLogEntry, len(logs))
	for i := range logs {
		log := &logs[i]
		entries[i] = api.UploadLogEntry{
			FileID:       log.FileID,
			FileName:     log.FileName,
			Status:       log.Status,
			RowsInserted: log.RowsInserted,
			RowsFailed:   log.RowsFailed,
			Error:        log.Error,
			Timestamp:    log.Timestamp,
		}
		if log.UploadedBy != nil {
			entries[i].UploadedBy = &api.Uploader{Name: log.UploadedBy.Name, Email: log.UploadedBy.Email}
		}
	}
	c.JSON(http.StatusOK, entries)
}

func (s adminService) teachers(c *gin.Context) {
	users, err := s.server.identities.ListUsersByRole(c, models.RoleTeacher)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, api.MsgServerError, err)
		return
	}

	staff := make([]*api.Staff, len(users))
	for i := range users {
		staff[i] = staffOf(&users[i])
	}
	c.JSON(http.StatusOK, staff)
}

func (s adminService) stats(c *gin.Context) {
	stats := s.server.pipeline.Stats()
	c.JSON(http.StatusOK, &stats)
}
