package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

// ApprovalClaims 审批链接携带的能力令牌, 不依赖登录会话
type ApprovalClaims struct {
	Purpose   string `json:"purpose"`
	SubjectID int64  `json:"sid"`
	Email     string `json:"email"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateApprovalToken 签发一次性审批令牌, jti 用于防重放
func (s *Signer) GenerateApprovalToken(purpose string, subjectID int64, email string, ttl time.Duration) (string, *ApprovalClaims, error) {
	now := time.Now()
	claims := &ApprovalClaims{
		Purpose:   purpose,
		SubjectID: subjectID,
		Email:     email,
		Type:      constants.JWTTypeApprove,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// ParseApprovalToken 校验签名/有效期/用途
func (s *Signer) ParseApprovalToken(tokenString, purpose string) (*ApprovalClaims, error) {
	claims := &ApprovalClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != constants.JWTTypeApprove || claims.Purpose != purpose || claims.ID == "" {
		return nil, pkgErrors.ErrInvalidToken
	}
	return claims, nil
}
