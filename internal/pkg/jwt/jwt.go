package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hpc-portal/internal/pkg/config"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

// UserClaims 用户Claims
type UserClaims struct {
	UserID      int64  `json:"uid"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AuthType    string `json:"auth_type"` // ldap / local / shibboleth
	Type        string `json:"type"`      // access or refresh
	jwt.RegisteredClaims
}

// Signer 会话Token签发
type Signer struct {
	secret        []byte
	accessExpire  time.Duration
	refreshExpire time.Duration
}

// NewSigner 创建签发器
func NewSigner(cfg config.JWTConfig) *Signer {
	return &Signer{
		secret:        []byte(cfg.Secret),
		accessExpire:  time.Duration(cfg.AccessTokenExpire) * time.Second,
		refreshExpire: time.Duration(cfg.RefreshTokenExpire) * time.Second,
	}
}

// Identity 签发Token所需的用户信息
type Identity struct {
	UserID      int64
	Username    string
	Email       string
	DisplayName string
	AuthType    string
}

// GenerateAccessToken 生成访问Token
func (s *Signer) GenerateAccessToken(id Identity) (string, error) {
	return s.generate(id, constants.JWTTypeAccess, s.accessExpire)
}

// GenerateRefreshToken 生成刷新Token
func (s *Signer) GenerateRefreshToken(id Identity) (string, error) {
	return s.generate(id, constants.JWTTypeRefresh, s.refreshExpire)
}

// AccessExpire 访问Token有效期(秒)
func (s *Signer) AccessExpire() int {
	return int(s.accessExpire / time.Second)
}

func (s *Signer) generate(id Identity, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID:      id.UserID,
		Username:    id.Username,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		AuthType:    id.AuthType,
		Type:        typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken 解析Token
func (s *Signer) ParseToken(tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateToken 验证访问Token
func (s *Signer) ValidateToken(tokenString string) (*UserClaims, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != constants.JWTTypeAccess {
		return nil, pkgErrors.ErrInvalidToken
	}
	return claims, nil
}

func (s *Signer) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return pkgErrors.ErrTokenExpired
		}
		return pkgErrors.Wrap(pkgErrors.CodeUnauthorized, "解析Token失败", err)
	}
	if !token.Valid {
		return pkgErrors.ErrInvalidToken
	}
	return nil
}
