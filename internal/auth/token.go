package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier проверяет access-токены (HS256). Выпуск токенов — забота
// auth-сервиса; здесь достаточно разделяемого секрета.
type Verifier struct {
	secret    []byte
	issuer    string
	clockSkew time.Duration
}

type AccessClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

func NewVerifier(secret, issuer string, clockSkew time.Duration) *Verifier {
	return &Verifier{
		secret:    []byte(secret),
		issuer:    issuer,
		clockSkew: clockSkew,
	}
}

// Verify разбирает токен и возвращает пользователя (sub=user id, username).
// Любая причина отказа схлопывается в domain.ErrInvalidToken: соединению
// всё равно молча отказывают.
func (v *Verifier) Verify(tokenStr string) (domain.User, error) {
	claims := &AccessClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return domain.User{}, domain.ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 || claims.Username == "" {
		return domain.User{}, domain.ErrInvalidToken
	}

	return domain.User{ID: id, Username: claims.Username}, nil
}

// Sign выпускает токен с sub=userID и exp=now+ttl; используется в dev и тестах.
func (v *Verifier) Sign(user domain.User, now time.Time, ttl time.Duration) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-v.clockSkew)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: user.Username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(v.secret)
}
