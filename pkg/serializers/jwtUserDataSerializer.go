package serializers

import (
	"time"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

type jwtUserDataSerializer struct {
	hmacSecret string
	ttl        time.Duration
	now        func() time.Time
}

func NewJwtUserDataSerializer(hmacSecret string, ttl time.Duration) *jwtUserDataSerializer {
	return &jwtUserDataSerializer{
		hmacSecret: hmacSecret,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Serialize signs the resolved identity for the upstream application.
func (serializer *jwtUserDataSerializer) Serialize(state *common.AuthState) (string, error) {
	if state.User == nil {
		return "", errors.New("anonymous state can not be serialized")
	}
	issuedAt := serializer.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   state.User.Id,
		"email": state.User.Email,
		"admin": state.IsAdmin,
		"iat":   issuedAt.Unix(),
		"exp":   issuedAt.Add(serializer.ttl).Unix(),
	})
	return token.SignedString([]byte(serializer.hmacSecret))
}
