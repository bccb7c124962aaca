package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/sirupsen/logrus"
)

// goTrueProvider reads the user behind the request access token.
// GetCurrentUser asks the identity server, GetCurrentSession only verifies the token locally.
type goTrueProvider struct {
	baseUrl string
	apiKey  string
	tokens  *TokenParser
	client  *http.Client
}

func NewGoTrueProvider(baseUrl string, apiKey string, tokens *TokenParser) *goTrueProvider {
	return &goTrueProvider{
		baseUrl: baseUrl,
		apiKey:  apiKey,
		tokens:  tokens,
		client:  &http.Client{},
	}
}

func (provider *goTrueProvider) GetCurrentUser(ctx context.Context) (*common.User, error) {
	const stage = "Getting current user error."

	accessToken := AccessTokenFromContext(ctx)
	if accessToken == "" {
		return nil, common.ErrSessionMissing
	}

	req, err := http.NewRequestWithContext(ctx, "GET", provider.baseUrl+"/auth/v1/user", nil)
	if err != nil {
		return nil, newErr(stage, err)
	}
	req.Header.Set("apikey", provider.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := provider.client.Do(req)
	if err != nil {
		return nil, newErr(stage, err)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, newErr(stage, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newErr(stage, fmt.Sprintf("status %d: %s", resp.StatusCode, body))
	}
	logrus.Tracef("Got user body: %s", body)

	var user common.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, newErr(stage, err)
	}
	if user.Id == "" {
		return nil, nil
	}
	return &user, nil
}

func (provider *goTrueProvider) GetCurrentSession(ctx context.Context) (*common.AuthSession, error) {
	accessToken := AccessTokenFromContext(ctx)
	if accessToken == "" {
		return nil, nil
	}
	session, err := provider.tokens.ParseSession(accessToken)
	if err != nil {
		logrus.Debugf("Stored access token rejected. Reason: %v", err)
		return nil, nil
	}
	return session, nil
}

func newErr(stage string, reason interface{}) error {
	return fmt.Errorf("%v Reason: %v", stage, reason)
}
