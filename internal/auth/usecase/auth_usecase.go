package usecase

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthUsecase issues and validates the bearer tokens that protect the
// management API.
type AuthUsecase interface {
	IssueToken(subject string) (string, error)
	// ValidateToken returns the token subject.
	ValidateToken(tokenString string) (string, error)
}

type authUsecase struct {
	secret []byte
	expiry time.Duration
}

func NewAuthUsecase(secret string, expiry time.Duration) AuthUsecase {
	if expiry == 0 {
		expiry = 15 * time.Minute
	}
	return &authUsecase{secret: []byte(secret), expiry: expiry}
}

func (u *authUsecase) IssueToken(subject string) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(u.expiry).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(u.secret)
}

func (u *authUsecase) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return u.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", errors.New("invalid token claims")
	}
	return subject, nil
}
