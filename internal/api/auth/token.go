package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken 表示令牌签名或结构非法（含过期）。
var ErrInvalidToken = errors.New("invalid token")

// Claims 从令牌中解出的身份信息。
//
// 在签发时刻之后不再与数据库同步，需要新鲜数据的调用方必须自行重查用户。
type Claims struct {
	UserID  uint
	IsAdmin bool
}

type customClaims struct {
	jwt.RegisteredClaims
	Admin bool `json:"admin"`
}

const tokenTTL = 24 * time.Hour

// IssueToken 签发 HS256 JWT，内嵌用户 ID 与管理员标记，有效期 24 小时。
func IssueToken(secret []byte, userID uint, isAdmin bool) (string, error) {
	claims := customClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Admin: isAdmin,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyToken 校验令牌签名与结构，返回内嵌的身份信息。
func VerifyToken(secret []byte, tokenStr string) (*Claims, error) {
	claims := &customClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Claims{UserID: uint(uid), IsAdmin: claims.Admin}, nil
}
