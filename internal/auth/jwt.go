package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// 错误定义
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token has expired")
	ErrRevokedToken      = errors.New("token has been revoked")
	ErrNoAuthHeader      = errors.New("authorization header is required")
	ErrInvalidAuthFormat = errors.New("invalid authorization format")
)

// issuer 令牌签发者
const issuer = "cyber-shield"

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey  string        `yaml:"secret_key"`
	ExpireTime time.Duration `yaml:"expire_time"`
}

// Claims JWT声明
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenRevoker 令牌注销存储，由 redis.Client 或 MemoryRevoker 实现
type TokenRevoker interface {
	RevokeToken(ctx context.Context, tokenID string, expiration time.Duration) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWTManager JWT管理器
type JWTManager struct {
	config  *JWTConfig
	revoker TokenRevoker
	now     func() time.Time
}

// NewJWTManager 创建JWT管理器，revoker为nil时使用内存存储
func NewJWTManager(config *JWTConfig, revoker TokenRevoker) *JWTManager {
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &JWTManager{
		config:  config,
		revoker: revoker,
		now:     time.Now,
	}
}

// GenerateToken 生成JWT令牌
func (m *JWTManager) GenerateToken(userID, username string) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.ExpireTime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// ValidateToken 验证JWT令牌
func (m *JWTManager) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.ID != "" {
		revoked, err := m.revoker.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}

	return claims, nil
}

// RevokeToken 注销令牌，直到其自然过期
func (m *JWTManager) RevokeToken(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	return m.revoker.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Sub(m.now()))
}

// MemoryRevoker 内存中的令牌黑名单
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevoker 创建内存令牌黑名单
func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// RevokeToken 将令牌加入黑名单
func (r *MemoryRevoker) RevokeToken(ctx context.Context, tokenID string, expiration time.Duration) error {
	if expiration <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	// 顺便清理已过期的记录
	for id, expiresAt := range r.revoked {
		if !expiresAt.After(now) {
			delete(r.revoked, id)
		}
	}
	r.revoked[tokenID] = now.Add(expiration)
	return nil
}

// IsTokenRevoked 检查令牌是否已注销
func (r *MemoryRevoker) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expiresAt, ok := r.revoked[tokenID]
	return ok && expiresAt.After(r.now()), nil
}
