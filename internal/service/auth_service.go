package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/scolarite-api/internal/models"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
)

type auditRecorder interface {
	Record(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig defines configuration for the unlock flow.
type AuthConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
	// Secrets maps each protected action to its shared secret in clear text.
	Secrets map[models.Scope]string
}

// AuthService exchanges the shared secret of an action for a scoped token.
type AuthService struct {
	hashes    map[models.Scope][]byte
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService hashes the configured secrets. Actions without a secret can never be unlocked.
func NewAuthService(audit auditRecorder, validate *validator.Validate, logger *zap.Logger, cfg AuthConfig) (*AuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.TokenExpiry <= 0 {
		cfg.TokenExpiry = 30 * time.Minute
	}
	hashes := make(map[models.Scope][]byte, len(cfg.Secrets))
	for scope, secret := range cfg.Secrets {
		if secret == "" {
			logger.Warn("no secret configured, action stays locked", zap.String("scope", string(scope)))
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash %s secret: %w", scope, err)
		}
		hashes[scope] = hash
	}
	cfg.Secrets = nil
	return &AuthService{hashes: hashes, audit: audit, validator: validate, logger: logger, config: cfg}, nil
}

// Unlock checks the secret of req.Action and returns a token carrying that
// scope plus any scope still valid in current.
func (s *AuthService) Unlock(ctx context.Context, req models.UnlockRequest, current *models.JWTClaims) (*models.UnlockResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid unlock payload")
	}

	hash, ok := s.hashes[req.Action]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "action cannot be unlocked")
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil {
		s.recordAudit(ctx, req, "denied")
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "incorrect password")
	}

	scopes := []models.Scope{req.Action}
	operator := req.Operator
	if current != nil {
		for _, scope := range current.Scopes {
			if scope != req.Action {
				scopes = append(scopes, scope)
			}
		}
		if operator == "" {
			operator = current.Operator
		}
	}

	token, err := s.generateToken(operator, scopes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	s.recordAudit(ctx, req, "granted")

	return &models.UnlockResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		Scope:       req.Action,
	}, nil
}

// ValidateToken parses and validates an unlock token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) generateToken(operator string, scopes []models.Scope) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		Operator: operator,
		Scopes:   scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.TokenSecret))
}

func (s *AuthService) recordAudit(ctx context.Context, req models.UnlockRequest, outcome string) {
	if s.audit == nil {
		return
	}
	var actor *string
	if req.Operator != "" {
		actor = &req.Operator
	}
	values, _ := json.Marshal(map[string]string{"scope": string(req.Action), "status": outcome})
	if err := s.audit.Record(ctx, &models.AuditLog{
		Actor:     actor,
		Action:    models.AuditActionUnlock,
		Resource:  "auth",
		NewValues: values,
		IPAddress: req.IP,
	}); err != nil {
		s.logger.Warn("failed to record unlock audit log", zap.Error(err))
	}
}
