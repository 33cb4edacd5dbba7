package middlewares

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/admin/ai-studio/internal/adapters/primary/http/response"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/pkg/logger"
	"github.com/admin/ai-studio/internal/ports/usecase"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const userContextKey = "auth_user"

type AuthConfig struct {
	// JWTSecret HMAC ключ, которым подписаны токены провайдера авторизации
	JWTSecret string `envconfig:"JWT_SECRET"`
	Issuer    string `envconfig:"JWT_ISSUER"`
	Audience  string `envconfig:"JWT_AUDIENCE"`
}

// Claims токен провайдера авторизации: sub это id пользователя
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenVerifier проверяет bearer токены
type TokenVerifier struct {
	secret []byte
	opts   []jwt.ParserOption
}

func NewTokenVerifier(cfg *AuthConfig) *TokenVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &TokenVerifier{secret: []byte(cfg.JWTSecret), opts: opts}
}

// Verify возвращает id пользователя и email из токена
func (v *TokenVerifier) Verify(raw string) (uuid.UUID, string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, v.opts...)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: subject is not a user id", domain.ErrUnauthorized)
	}
	return id, claims.Email, nil
}

// Auth проверяет токен и кладёт пользователя в контекст, при первом входе пользователь создаётся
func Auth(verifier *TokenVerifier, users usecase.IUserUsecase, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": response.MsgUnauthorized})
			return
		}

		userID, email, err := verifier.Verify(raw)
		if err != nil {
			log.Debug("token rejected", "error", err, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": response.MsgUnauthorized})
			return
		}

		user, err := users.EnsureUser(c.Request.Context(), userID, email)
		if err != nil {
			response.Error(c, log, err)
			return
		}

		SetUser(c, user)
		c.Request = c.Request.WithContext(logger.WithContextAttrs(c.Request.Context(), slog.String("user_id", user.ID.String())))
		c.Next()
	}
}

// RequireAdmin ставится после Auth
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": response.MsgForbidden})
			return
		}
		c.Next()
	}
}

func SetUser(c *gin.Context, user *domain.User) {
	c.Set(userContextKey, user)
}

// CurrentUser пользователь, положенный Auth, nil на публичных маршрутах
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

// MustUser для хендлеров за Auth
func MustUser(c *gin.Context) (*domain.User, error) {
	if user := CurrentUser(c); user != nil {
		return user, nil
	}
	return nil, errors.New("handler registered without auth middleware")
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
