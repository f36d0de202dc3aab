package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/dbx"
	"github.com/dmitrijs2005/webcatalog/internal/server/auth"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL matches the 24h admin session lifetime.
const DefaultSessionTTL = 24 * time.Hour

// Session is what a verified token proves.
type Session struct {
	AdminID  int64
	Username string
}

// AuthService checks admin credentials and issues stateless session tokens.
type AuthService struct {
	db          dbx.Transactor
	repomanager repomanager.RepositoryManager
	secretKey   []byte
	ttl         time.Duration
	bcryptCost  int
}

func NewAuthService(db dbx.Transactor, m repomanager.RepositoryManager, secretKey string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		db:          db,
		repomanager: m,
		secretKey:   []byte(secretKey),
		ttl:         ttl,
		bcryptCost:  bcrypt.DefaultCost,
	}
}

// TTL is the lifetime of issued tokens.
func (s *AuthService) TTL() time.Duration {
	return s.ttl
}

// Login verifies the password and returns a signed session token.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" {
		return "", common.Required("username")
	}
	if password == "" {
		return "", common.Required("password")
	}

	invalid := common.Public(common.ErrUnauthorized, "Invalid username or password")

	admin, err := s.repomanager.Admins(s.db.Conn()).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", invalid
		}
		return "", common.Persistence("find admin", err)
	}

	if err := bcrypt.CompareHashAndPassword(admin.PasswordHash, []byte(password)); err != nil {
		return "", invalid
	}

	token, err := auth.GenerateToken(admin.ID, admin.Username, s.secretKey, s.ttl)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Verify checks a session token.
func (s *AuthService) Verify(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, common.Public(common.ErrUnauthorized, "Invalid session")
	}

	claims, err := auth.ParseToken(token, s.secretKey)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, common.Public(common.ErrUnauthorized, "Session expired")
		}
		return nil, common.Public(common.ErrUnauthorized, "Invalid session")
	}

	id, err := claims.AdminID()
	if err != nil {
		return nil, common.Public(common.ErrUnauthorized, "Invalid session")
	}
	return &Session{AdminID: id, Username: claims.Username}, nil
}

// AddAdmin stores a new admin with a bcrypt password hash.
func (s *AuthService) AddAdmin(ctx context.Context, username, password string) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, common.Required("username")
	}
	if strings.TrimSpace(password) == "" {
		return nil, common.Required("password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(password)), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	admin, err := s.repomanager.Admins(s.db.Conn()).Create(ctx, &models.Admin{Username: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.Public(common.ErrConflict, "Admin already exists")
		}
		return nil, common.Persistence("create admin", err)
	}
	return admin, nil
}
