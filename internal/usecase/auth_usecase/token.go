package auth

import (
	"errors"
	"strconv"
	"time"

	"peercart/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
)

// 登録途中トークンの用途
const draftPurpose = "registration"

var ErrInvalidToken = errors.New("invalid token")

// ログイン用と登録途中用のJWTを発行する（HS256）
type TokenIssuer struct {
	secret   []byte
	authTTL  time.Duration
	draftTTL time.Duration
}

func NewTokenIssuer(secret string, authTTL, draftTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:   []byte(secret),
		authTTL:  authTTL,
		draftTTL: draftTTL,
	}
}

// ログインcookieに入れるトークン {sub, role, tv, exp}
func (t *TokenIssuer) IssueAuth(u model.User, now time.Time) (string, time.Time, error) {
	exp := now.Add(t.authTTL)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(u.ID, 10),
		"role": string(u.UserType),
		"tv":   u.TokenVersion,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

type draftClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// 登録途中データのIDを署名して渡す
func (t *TokenIssuer) IssueDraft(draftID string, now time.Time) (string, time.Time, error) {
	exp := now.Add(t.draftTTL)
	claims := draftClaims{
		Purpose: draftPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   draftID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// 登録途中トークンからIDを取り出す
func (t *TokenIssuer) ParseDraft(raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalidToken
	}

	var claims draftClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(tk *jwt.Token) (interface{}, error) {
		if tk.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Purpose != draftPurpose || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
