package openboxes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SessionCookieName is the cookie the backend uses to identify a login.
const SessionCookieName = "JSESSIONID"

const maxResponseBytes = 8 << 20

// Observer receives one observation per upstream call.
type Observer interface {
	ObserveUpstream(method, route string, status int, elapsed time.Duration)
}

// Client talks to the OpenBoxes REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	observer   Observer
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithObserver installs an upstream call observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient constructs a new client for the backend rooted at baseURL
// (for example http://localhost:8080/openboxes).
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sessionKey struct{}

// WithSession attaches the upstream session cookie value to ctx.
func WithSession(ctx context.Context, cookie string) context.Context {
	return context.WithValue(ctx, sessionKey{}, cookie)
}

// SessionFromContext returns the upstream session cookie value, if any.
func SessionFromContext(ctx context.Context) string {
	v, _ := ctx.Value(sessionKey{}).(string)
	return v
}

// envelope is the common {"data": ...} response wrapper.
type envelope[T any] struct {
	Data T `json:"data"`
}

type errorBody struct {
	ErrorMessage  string   `json:"errorMessage"`
	ErrorMessages []string `json:"errorMessages"`
	Message       string   `json:"message"`
}

type call struct {
	method string
	route  string
	path   string
	query  url.Values
	body   any
}

func (c *Client) do(ctx context.Context, cl call, out any) (*http.Response, error) {
	var reader io.Reader
	if cl.body != nil {
		buf, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("openboxes: encode %s: %w", cl.route, err)
		}
		reader = bytes.NewReader(buf)
	}
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie := SessionFromContext(ctx); cookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie})
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if c.observer != nil {
		c.observer.ObserveUpstream(cl.method, cl.route, status, time.Since(started))
	}
	if err != nil {
		return nil, fmt.Errorf("openboxes: %s %s: %w", cl.method, cl.route, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("openboxes: read %s: %w", cl.route, err)
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{Method: cl.method, Path: cl.path, Status: resp.StatusCode, Message: errorMessage(payload)}
	}
	if out != nil && len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return nil, fmt.Errorf("openboxes: decode %s: %w", cl.route, err)
		}
	}
	return resp, nil
}

func errorMessage(payload []byte) string {
	var body errorBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	switch {
	case body.ErrorMessage != "":
		return body.ErrorMessage
	case len(body.ErrorMessages) > 0:
		return strings.Join(body.ErrorMessages, "; ")
	default:
		return body.Message
	}
}

// Login authenticates against the backend and returns the session cookie value.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	resp, err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/api/login",
		path:   "/api/login",
		body:   map[string]string{"username": username, "password": password},
	}, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return "", ErrUnauthenticated
		}
		return "", err
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookieName {
			return cookie.Value, nil
		}
	}
	if cookie := SessionFromContext(ctx); cookie != "" {
		return cookie, nil
	}
	return "", errors.New("openboxes: login response carried no session cookie")
}

// Session returns the current upstream session.
func (c *Client) Session(ctx context.Context) (SessionInfo, error) {
	var out envelope[SessionInfo]
	_, err := c.do(ctx, call{method: http.MethodGet, route: "/api/getSession", path: "/api/getSession"}, &out)
	return out.Data, err
}

// ChooseLocation switches the current location of the upstream session.
func (c *Client) ChooseLocation(ctx context.Context, locationID string) error {
	_, err := c.do(ctx, call{
		method: http.MethodPut,
		route:  "/api/chooseLocation/:id",
		path:   "/api/chooseLocation/" + url.PathEscape(locationID),
	}, nil)
	return err
}

// Localizations returns the translation table for lang.
func (c *Client) Localizations(ctx context.Context, lang string) (map[string]string, error) {
	var out struct {
		Messages map[string]string `json:"messages"`
	}
	_, err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/api/localizations",
		path:   "/api/localizations",
		query:  url.Values{"lang": []string{lang}},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Messages == nil {
		out.Messages = map[string]string{}
	}
	return out.Messages, nil
}

// ReasonCodes lists the reason codes used to justify revisions.
func (c *Client) ReasonCodes(ctx context.Context) ([]ReasonCode, error) {
	var out envelope[[]ReasonCode]
	_, err := c.do(ctx, call{method: http.MethodGet, route: "/api/reasonCodes", path: "/api/reasonCodes"}, &out)
	return out.Data, err
}

// People lists the users that may request a movement.
func (c *Client) People(ctx context.Context) ([]Person, error) {
	var out envelope[[]Person]
	_, err := c.do(ctx, call{method: http.MethodGet, route: "/api/generic/person", path: "/api/generic/person"}, &out)
	return out.Data, err
}

// Locations lists locations whose name matches the filter.
func (c *Client) Locations(ctx context.Context, name string) ([]Location, error) {
	query := url.Values{}
	if name != "" {
		query.Set("name", name)
	}
	var out envelope[[]Location]
	_, err := c.do(ctx, call{method: http.MethodGet, route: "/api/locations", path: "/api/locations", query: query}, &out)
	return out.Data, err
}

// Stocklists lists the stock lists available for an origin/destination pair.
func (c *Client) Stocklists(ctx context.Context, originID, destinationID string) ([]Stocklist, error) {
	var out envelope[[]Stocklist]
	_, err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/api/stocklists",
		path:   "/api/stocklists",
		query:  url.Values{"origin.id": []string{originID}, "destination.id": []string{destinationID}},
	}, &out)
	return out.Data, err
}

// SaveStockMovement creates (empty id) or updates a stock movement header.
// The payload uses dotted keys.
func (c *Client) SaveStockMovement(ctx context.Context, id string, payload map[string]any) (StockMovement, error) {
	path, route := "/api/stockMovements", "/api/stockMovements"
	if id != "" {
		path += "/" + url.PathEscape(id)
		route += "/:id"
	}
	var out envelope[StockMovement]
	_, err := c.do(ctx, call{method: http.MethodPost, route: route, path: path, body: payload}, &out)
	return out.Data, err
}

// StockMovement loads the header of an existing movement.
func (c *Client) StockMovement(ctx context.Context, id string) (StockMovement, error) {
	var out envelope[StockMovement]
	_, err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/api/stockMovements/:id",
		path:   "/api/stockMovements/" + url.PathEscape(id),
	}, &out)
	return out.Data, err
}

// StepData loads the page payload for a wizard step.
func (c *Client) StepData(ctx context.Context, id string, step int) (StepData, error) {
	var out envelope[StepData]
	_, err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/api/stockMovements/:id",
		path:   "/api/stockMovements/" + url.PathEscape(id),
		query:  url.Values{"stepNumber": []string{fmt.Sprint(step)}},
	}, &out)
	return out.Data, err
}

// ReviseItems posts quantity revisions.
func (c *Client) ReviseItems(ctx context.Context, id string, items []RevisedLineItem) error {
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/api/stockMovements/:id",
		path:   "/api/stockMovements/" + url.PathEscape(id),
		body:   map[string]any{"lineItems": items},
	}, nil)
	return err
}

// RevertItem reverts one requisition item and returns the refreshed edit page.
func (c *Client) RevertItem(ctx context.Context, id, itemID string) (EditPage, error) {
	body := map[string]any{
		"id":        id,
		"lineItems": []map[string]string{{"id": itemID, "revert": "true"}},
	}
	var out envelope[StepData]
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/api/stockMovements/:id",
		path:   "/api/stockMovements/" + url.PathEscape(id),
		query:  url.Values{"stepNumber": []string{"3"}},
		body:   body,
	}, &out)
	if err != nil {
		return EditPage{}, err
	}
	if out.Data.EditPage == nil {
		return EditPage{}, fmt.Errorf("%w: editPage missing", ErrMalformedResponse)
	}
	return *out.Data.EditPage, nil
}

// SavePackItems persists the packing page and returns the echoed page.
func (c *Client) SavePackItems(ctx context.Context, id string, items []PackPageItem) (PackPage, error) {
	payload, err := Flatten(map[string]any{
		"id":            id,
		"stepNumber":    "5",
		"packPageItems": items,
	})
	if err != nil {
		return PackPage{}, err
	}
	var out envelope[StepData]
	_, err = c.do(ctx, call{
		method: http.MethodPost,
		route:  "/api/stockMovements/:id",
		path:   "/api/stockMovements/" + url.PathEscape(id),
		body:   payload,
	}, &out)
	if err != nil {
		return PackPage{}, err
	}
	if out.Data.PackPage == nil {
		return PackPage{}, fmt.Errorf("%w: packPage missing", ErrMalformedResponse)
	}
	return *out.Data.PackPage, nil
}

// UpdateStatus transitions the stock movement.
func (c *Client) UpdateStatus(ctx context.Context, id string, update StatusUpdate) error {
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/api/stockMovements/:id/status",
		path:   "/api/stockMovements/" + url.PathEscape(id) + "/status",
		body:   update,
	}, nil)
	return err
}

// PostJSON sends an arbitrary JSON document to a backend path and decodes the reply.
func (c *Client) PostJSON(ctx context.Context, route, path string, payload any, out any) error {
	_, err := c.do(ctx, call{method: http.MethodPost, route: route, path: path, body: payload}, out)
	return err
}
