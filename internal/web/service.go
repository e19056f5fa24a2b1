package web

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bigredeye/gradebook/api"
	"github.com/bigredeye/gradebook/internal/config"
	lf "github.com/bigredeye/gradebook/internal/logfield"
	"github.com/bigredeye/gradebook/internal/models"
)

type webService struct {
	server *server
	config *config.Config
	log    *zap.Logger
}

// fail logs the cause and replies with an opaque message.
func (s webService) fail(c *gin.Context, code int, msg string, err error) {
	fields := []zap.Field{zap.Int("code", code), zap.String("path", c.FullPath()), zap.Error(err)}
	if user, ok := currentUser(c); ok {
		fields = append(fields, lf.UserID(user.ID))
	}
	if code >= 500 {
		s.log.Error(msg, fields...)
	} else {
		s.log.Info(msg, fields...)
	}
	c.AbortWithStatusJSON(code, &api.Message{Msg: msg})
}

const userKey = "user"

func currentUser(c *gin.Context) (*models.User, bool) {
	v, found := c.Get(userKey)
	if !found {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
