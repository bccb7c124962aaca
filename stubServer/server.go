package main

import (
	"fmt"
	"net/http"

	"github.com/dgrijalva/jwt-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Development upstream. Echoes the request and the identity the gateway sent
// in the user data header.
func main() {
	viper.SetDefault("port", 3000)
	viper.SetDefault("user-data-header", "X-Consign-User")
	_ = viper.BindEnv("port", "STUB_PORT")
	_ = viper.BindEnv("secret", "CONSIGN_JWT_SECRET")

	http.HandleFunc("/", mainHandler(viper.GetString("user-data-header"), viper.GetString("secret")))

	port := viper.GetInt("port")
	log.Printf("Server starting on port %v", port)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%v", port), nil))
}

func mainHandler(userDataHeader string, secret string) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		_, _ = fmt.Fprintf(writer, "%s %s\n", request.Method, request.URL.String())
		_, _ = fmt.Fprintf(writer, "\n")
		for header, value := range request.Header {
			_, _ = fmt.Fprintf(writer, "%s=%v\n", header, value)
		}

		token := request.Header.Get(userDataHeader)
		if token == "" {
			_, _ = fmt.Fprintf(writer, "\nanonymous\n")
			return
		}
		claims, err := verifyUserData(token, secret)
		if err != nil {
			_, _ = fmt.Fprintf(writer, "\ninvalid user data: %v\n", err)
			return
		}
		_, _ = fmt.Fprintf(writer, "\nuser=%v admin=%v\n", claims["sub"], claims["admin"])
	}
}

func verifyUserData(token string, secret string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	return claims, err
}
