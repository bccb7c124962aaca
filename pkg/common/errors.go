package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// NoRowsErrorCode is reported by the privilege store when a single-row lookup matched nothing.
const NoRowsErrorCode = "PGRST116"

var ErrSessionMissing = errors.New("auth session missing")

type StoreError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (err *StoreError) Error() string {
	return fmt.Sprintf("privilege store error %v: %v", err.Code, err.Message)
}

func IsNoRows(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Code == NoRowsErrorCode
}
