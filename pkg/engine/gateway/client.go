package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/consts"
)

// Operation statuses reported by the gateway.
const (
	StatusInitialized = "INITIALIZED"
	StatusPending     = "PENDING"
	StatusRunning     = "RUNNING"
	StatusFinished    = "FINISHED"
	StatusCanceled    = "CANCELED"
	StatusClosed      = "CLOSED"
	StatusError       = "ERROR"
	StatusTimeout     = "TIMEOUT"
)

type (
	// Client calls the v1 REST API of a Flink SQL gateway.
	Client struct {
		base *url.URL
		http *http.Client
	}

	// APIError is a non-2xx gateway response.
	APIError struct {
		StatusCode int
		Errors     []string
	}

	openSessionRequest struct {
		SessionName string            `json:"sessionName,omitempty"`
		Properties  map[string]string `json:"properties,omitempty"`
	}

	openSessionResponse struct {
		SessionHandle string `json:"sessionHandle"`
	}

	executeStatementRequest struct {
		Statement string `json:"statement"`
	}

	executeStatementResponse struct {
		OperationHandle string `json:"operationHandle"`
	}

	statusResponse struct {
		Status string `json:"status"`
	}

	// Result is the first page of an operation's result.
	Result struct {
		ResultType string `json:"resultType"`
		JobID      string `json:"jobID"`
	}

	errorResponse struct {
		Errors []string `json:"errors"`
	}
)

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("gateway returned %d", e.StatusCode)
	}

	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, strings.Join(e.Errors, "; "))
}

// NewClient creates a Client for the gateway at baseURL.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid gateway url %q", baseURL)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid gateway url %q: scheme must be http or https", baseURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: consts.DefaultGatewayRequestTimeout}
	}

	return &Client{base: u, http: httpClient}, nil
}

// OpenSession opens a session with properties and returns its handle.
func (c *Client) OpenSession(ctx context.Context, name string, properties map[string]string) (string, error) {
	var resp openSessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", openSessionRequest{SessionName: name, Properties: properties}, &resp); err != nil {
		return "", errors.Wrap(err, "failed to open session")
	}

	return resp.SessionHandle, nil
}

// CloseSession closes a session.
func (c *Client) CloseSession(ctx context.Context, session string) error {
	return errors.Wrap(c.do(ctx, http.MethodDelete, "/v1/sessions/"+session, nil, nil), "failed to close session")
}

// ExecuteStatement submits stmt and returns the operation handle.
func (c *Client) ExecuteStatement(ctx context.Context, session, stmt string) (string, error) {
	var resp executeStatementResponse
	path := fmt.Sprintf("/v1/sessions/%s/statements", session)
	if err := c.do(ctx, http.MethodPost, path, executeStatementRequest{Statement: stmt}, &resp); err != nil {
		return "", errors.Wrap(err, "failed to submit statement")
	}

	return resp.OperationHandle, nil
}

// OperationStatus returns the status of an operation.
func (c *Client) OperationStatus(ctx context.Context, session, operation string) (string, error) {
	var resp statusResponse
	path := fmt.Sprintf("/v1/sessions/%s/operations/%s/status", session, operation)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", errors.Wrap(err, "failed to get operation status")
	}

	return resp.Status, nil
}

// FetchResult returns the first result page of an operation. For a failed
// operation the gateway answers with the failure as an *APIError.
func (c *Client) FetchResult(ctx context.Context, session, operation string) (Result, error) {
	var resp Result
	path := fmt.Sprintf("/v1/sessions/%s/operations/%s/result/0", session, operation)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return Result{}, err
	}

	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}

		var er errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
			apiErr.Errors = er.Errors
		}

		return apiErr
	}

	if out == nil {
		return nil
	}

	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "failed to decode response")
}
