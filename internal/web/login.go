package web

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/gradebook/api"
	lf "github.com/bigredeye/gradebook/internal/logfield"
	"github.com/bigredeye/gradebook/internal/models"
	"github.com/bigredeye/gradebook/internal/records"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgUserExists         = "User already exists"

	sessionTokenKey = "token"
)

type loginService struct {
	webService
}

func setupLoginService(server *server, r *gin.RouterGroup) {
	s := loginService{webService{server, server.config, server.logger.Named("auth")}}

	auth := r.Group("/auth")
	auth.POST("/register", s.register)
	auth.POST("/login", s.login)
	auth.POST("/logout", s.logout)
}

func staffOf(user *models.User) *api.Staff {
	return &api.Staff{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func (s loginService) register(c *gin.Context) {
	req := api.RegisterRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, api.MsgInvalidRequest, err)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleTeacher
	}
	if !models.IsKnownRole(req.Role) {
		s.fail(c, http.StatusBadRequest, api.MsgInvalidRequest, pkgerrors.Errorf("unknown role %q", req.Role))
		return
	}

	user := &models.User{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Role:  req.Role,
	}
	if err := user.SetPassword(req.Password); err != nil {
		s.fail(c, http.StatusInternalServerError, api.MsgServerError, err)
		return
	}

	if err := s.server.identities.AddUser(c, user); err != nil {
		if records.IsDuplicateKey(err) {
			s.fail(c, http.StatusConflict, msgUserExists, err)
			return
		}
		s.fail(c, http.StatusInternalServerError, api.MsgServerError, err)
		return
	}
	s.log.Info("Registered user", lf.UserID(user.ID), lf.Email(user.Email), zap.String("role", user.Role))

	s.startSession(c, http.StatusCreated, user)
}

func (s loginService) login(c *gin.Context) {
	req := api.LoginRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, api.MsgInvalidRequest, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.server.identities.FindUserByEmail(c, email)
	if errors.Is(err, records.ErrNotFound) {
		s.fail(c, http.StatusUnauthorized, msgInvalidCredentials, pkgerrors.Errorf("unknown email %q", email))
		return
	} else if err != nil {
		s.fail(c, http.StatusInternalServerError, api.MsgServerError, err)
		return
	}
	if !user.CheckPassword(req.Password) {
		s.fail(c, http.StatusUnauthorized, msgInvalidCredentials, pkgerrors.Errorf("wrong password for %q", email))
		return
	}

	s.startSession(c, http.StatusOK, user)
}

func (s loginService) startSession(c *gin.Context, code int, user *models.User) {
	token, err := s.server.identities.CreateSession(c, user.ID)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, api.MsgServerError, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionTokenKey, token.Token)
	if err := session.Save(); err != nil {
		s.log.Error("Failed to save session", zap.Error(err))
	}

	s.log.Info("Logged in", lf.UserID(user.ID))
	c.JSON(code, &api.LoginResponse{Token: token.Token, User: staffOf(user)})
}

func (s loginService) logout(c *gin.Context) {
	if token := requestToken(c); token != "" {
		if err := s.server.identities.DeleteSession(c, token); err != nil {
			s.fail(c, http.StatusInternalServerError, api.MsgServerError, err)
			return
		}
		s.server.sessions.Delete(token)
	}

	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		s.log.Error("Failed to save session", zap.Error(err))
	}

	c.JSON(http.StatusOK, &api.Message{Msg: api.MsgLoggedOut})
}

func decodeKey(name, value string) ([]byte, error) {
	if value == "" {
		return securecookie.GenerateRandomKey(32), nil
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "Failed to decode hex %s", name)
	}
	return key, nil
}

func setupAuth(s *server, r *gin.Engine) error {
	cookies := s.config.Server.Cookies
	if cookies.AuthenticationKey == "" || cookies.EncryptionKey == "" {
		s.logger.Warn("Cookie keys are not configured, browser sessions will not survive a restart")
	}

	authKey, err := decodeKey("authenticationKey", cookies.AuthenticationKey)
	if err != nil {
		return err
	}
	encryptKey, err := decodeKey("encryptionKey", cookies.EncryptionKey)
	if err != nil {
		return err
	}

	store := cookie.NewStore(authKey, encryptKey)
	store.Options(sessions.Options{
		Path:     "/",
		Secure:   cookies.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("session", store))
	return nil
}

// requestToken looks for the token in the Token header, then in a bearer
// Authorization header, then in the session cookie.
func requestToken(c *gin.Context) string {
	if token := c.GetHeader("Token"); token != "" {
		return token
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if token, ok := sessions.Default(c).Get(sessionTokenKey).(string); ok {
		return token
	}
	return ""
}

func (s *server) findUserBySession(ctx context.Context, token string) (*models.User, error) {
	var issuedAfter time.Time
	if ttl := s.config.Sessions.TokenTTL; ttl > 0 {
		issuedAfter = time.Now().Add(-ttl)
	}
	item, err := s.sessions.Fetch(token, s.cacheTTL(), func() (interface{}, error) {
		return s.identities.FindUserBySession(ctx, token, issuedAfter)
	})
	if err != nil {
		return nil, err
	}
	return item.Value().(*models.User), nil
}

// cacheTTL keeps cached identities from outliving their tokens.
func (s *server) cacheTTL() time.Duration {
	if ttl := s.config.Sessions.TokenTTL; ttl > 0 && ttl < s.config.Sessions.CacheTTL {
		return ttl
	}
	return s.config.Sessions.CacheTTL
}

func (s *server) validateSession(c *gin.Context) {
	token := requestToken(c)
	if token == "" {
		s.logger.Info("Missing token", zap.String("path", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, &api.Message{Msg: api.MsgUnauthorized})
		return
	}

	user, err := s.findUserBySession(c, token)
	if errors.Is(err, records.ErrNotFound) {
		s.logger.Info("Unknown token", zap.String("path", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, &api.Message{Msg: api.MsgUnauthorized})
		return
	} else if err != nil {
		s.logger.Error("Failed to validate session", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, &api.Message{Msg: api.MsgServerError})
		return
	}

	c.Set(userKey, user)
	c.Next()
}
