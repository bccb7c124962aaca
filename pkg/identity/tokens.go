package identity

import (
	"context"
	"time"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

type accessTokenKey struct{}

func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func AccessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

// TokenParser verifies HS256 access tokens issued by the identity provider.
type TokenParser struct {
	secret []byte
}

func NewTokenParser(secret string) *TokenParser {
	if secret == "" {
		panic("JWT secret is required to create TokenParser")
	}
	return &TokenParser{secret: []byte(secret)}
}

func (parser *TokenParser) ParseSession(accessToken string) (*common.AuthSession, error) {
	token, err := jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return parser.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "error parsing access token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("access token is not valid")
	}

	subject := cast.ToString(claims["sub"])
	if subject == "" {
		return nil, errors.New("access token has no subject")
	}

	return &common.AuthSession{
		User: common.User{
			Id:    subject,
			Email: cast.ToString(claims["email"]),
		},
		AccessToken:     accessToken,
		AuthenticatedAt: time.Unix(cast.ToInt64(claims["iat"]), 0),
	}, nil
}
