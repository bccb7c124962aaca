package privilege

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/sirupsen/logrus"
)

const singleObjectMediaType = "application/vnd.pgrst.object+json"

// restStore queries the admin users table through a PostgREST endpoint.
type restStore struct {
	baseUrl string
	apiKey  string
	table   string
	client  *http.Client
}

func NewRestStore(baseUrl string, apiKey string, table string) *restStore {
	return &restStore{
		baseUrl: baseUrl,
		apiKey:  apiKey,
		table:   table,
		client:  &http.Client{},
	}
}

func (store *restStore) LookupAdmin(ctx context.Context, userId string) (*common.AdminUser, error) {
	const stage = "Looking up admin user error."

	req, err := store.buildLookupRequest(ctx, userId)
	if err != nil {
		return nil, newErr(stage, err)
	}

	resp, err := store.client.Do(req)
	if err != nil {
		return nil, newErr(stage, err)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, newErr(stage, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseStoreError(resp.StatusCode, body)
	}
	logrus.Tracef("Got admin user body: %s", body)

	var row common.AdminUser
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, newErr(stage, err)
	}
	return &row, nil
}

func (store *restStore) buildLookupRequest(ctx context.Context, userId string) (*http.Request, error) {
	query := url.Values{}
	query.Set("select", "user_id,created_at")
	query.Set("user_id", "eq."+userId)

	req, err := http.NewRequestWithContext(
		ctx,
		"GET",
		fmt.Sprintf("%s/rest/v1/%s?%s", store.baseUrl, store.table, query.Encode()),
		nil,
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", singleObjectMediaType)
	req.Header.Set("apikey", store.apiKey)
	req.Header.Set("Authorization", "Bearer "+store.apiKey)
	return req, nil
}

func parseStoreError(status int, body []byte) error {
	storeErr := &common.StoreError{}
	if err := json.Unmarshal(body, storeErr); err != nil || storeErr.Code == "" {
		return &common.StoreError{
			Code:    fmt.Sprintf("HTTP%d", status),
			Message: string(body),
		}
	}
	return storeErr
}

func newErr(stage string, reason interface{}) error {
	return fmt.Errorf("%v Reason: %v", stage, reason)
}
