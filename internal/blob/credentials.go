package blob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// UploadCredential is a short-lived, folder-scoped grant that lets a
// client upload directly to the media host. The host verifies the
// signature; this service never proxies the bytes.
type UploadCredential struct {
	Token     string    `json:"token"`
	Folder    string    `json:"folder"`
	ExpiresAt time.Time `json:"expires_at"`
}

type credentialClaims struct {
	Folder string `json:"folder"`
	Nonce  string `json:"nonce"`
	jwt.RegisteredClaims
}

// CredentialIssuer signs upload credentials and rate-limits issuance
// per caller.
type CredentialIssuer struct {
	secret  []byte
	ttl     time.Duration
	limit   int
	limiter RateLimiter
	logger  *zap.Logger
	now     func() time.Time
}

// NewCredentialIssuer builds the issuer.
func NewCredentialIssuer(cfg config.UploadConfig, limiter RateLimiter, logger *zap.Logger) *CredentialIssuer {
	return &CredentialIssuer{
		secret:  []byte(cfg.SigningSecret),
		ttl:     cfg.CredentialTTL(),
		limit:   cfg.IssuePerHourLimit,
		limiter: limiter,
		logger:  logger,
		now:     time.Now,
	}
}

// Issue returns a credential scoped to the ticket's storage folder.
func (i *CredentialIssuer) Issue(ctx context.Context, actor domain.Actor, ticketID int64) (*UploadCredential, error) {
	if i.limiter != nil {
		allowed, err := i.limiter.Allow(ctx, "upload_cred:"+actor.Email, i.limit, time.Hour)
		if err != nil {
			// a rate limiter outage must not take down uploads
			i.logger.Warn("upload rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			return nil, util.NewDomainError("RATE_LIMITED", "too many upload credential requests", http.StatusTooManyRequests, nil)
		}
	}

	folder := fmt.Sprintf("tickets/%d", ticketID)
	expiresAt := i.now().Add(i.ttl)
	claims := &credentialClaims{
		Folder: folder,
		Nonce:  uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.Email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(i.now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return &UploadCredential{Token: token, Folder: folder, ExpiresAt: expiresAt}, nil
}

// Verify checks a credential's signature and expiry and returns the
// folder it grants access to. The media host gateway calls this before
// accepting an upload.
func (i *CredentialIssuer) Verify(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &credentialClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return "", util.NewUnauthorized("invalid upload credential")
	}
	claims, ok := parsed.Claims.(*credentialClaims)
	if !ok || !parsed.Valid {
		return "", util.NewUnauthorized("invalid upload credential")
	}
	return claims.Folder, nil
}
