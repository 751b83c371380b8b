package backoffice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/golfclapp/backoffice/internal/pricing"
)

// APIKeyHeader carries the per-session key on every request.
const APIKeyHeader = "Api-Key"

// User is a read-only entry of the user list.
type User struct {
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	UserName    string `json:"userName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// UserPage is one page of the user list.
type UserPage struct {
	Items      []User `json:"items"`
	TotalPages int    `json:"totalPages"`
}

// UserQuery selects a page of users.
type UserQuery struct {
	PageNumber int
	PageSize   int
	SearchTerm string
}

// DailyRequest is the wire form of a CreateDailyPriceRanges call. The time
// of day of StartDate/EndDate is ignored server-side; StartTime/EndTime
// carry it instead.
type DailyRequest struct {
	CourseID  string `json:"courseId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Price     int64  `json:"price"`
}

// NewDailyRequest converts a plan into its wire form.
func NewDailyRequest(p pricing.DailyPlan) DailyRequest {
	return DailyRequest{
		CourseID:  p.CourseID,
		StartDate: p.StartDate.String() + "T00:00:00.000Z",
		EndDate:   p.EndDate.String() + "T00:00:00.000Z",
		StartTime: p.StartTime.String(),
		EndTime:   p.EndTime.String(),
		Price:     p.Price,
	}
}

// Client is a client for the BackOffice API. A Client without a key can
// only be used to derive keyed clients with WithAPIKey.
type Client struct {
	config     Config
	httpClient *http.Client
	apiKey     string
}

// NewClient creates a new BackOffice API client.
func NewClient(config Config) *Client {
	config = config.normalize()
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// WithAPIKey returns a client that authenticates with key. The underlying
// HTTP client is shared.
func (c *Client) WithAPIKey(key string) *Client {
	keyed := *c
	keyed.apiKey = key
	return &keyed
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// GetPriceRanges fetches every course with its full set of price ranges.
func (c *Client) GetPriceRanges(ctx context.Context) ([]pricing.CourseSnapshot, error) {
	const op = "GetPriceRanges"

	var snapshots []pricing.CourseSnapshot
	if err := c.do(ctx, op, http.MethodPost, "/GetPriceRanges", nil, nil, &snapshots); err != nil {
		return nil, err
	}
	if snapshots == nil {
		snapshots = []pricing.CourseSnapshot{}
	}
	return snapshots, nil
}

// UpdatePriceRange creates or replaces a price range. A range without an id
// is given a new UUID, which is returned in the result.
func (c *Client) UpdatePriceRange(ctx context.Context, r pricing.PriceRange) (pricing.PriceRange, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := c.do(ctx, "UpdatePriceRange", http.MethodPost, "/UpdatePriceRange", nil, r, nil); err != nil {
		return pricing.PriceRange{}, err
	}
	return r, nil
}

// DeletePriceRange removes one price range.
func (c *Client) DeletePriceRange(ctx context.Context, id string) error {
	query := url.Values{"id": {id}}
	return c.do(ctx, "DeletePriceRange", http.MethodDelete, "/DeletePriceRange", query, nil, nil)
}

// DeletePriceRanges removes several price ranges in one call.
func (c *Client) DeletePriceRanges(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return c.do(ctx, "DeletePriceRanges", http.MethodDelete, "/DeletePriceRanges", nil, ids, nil)
}

// CreateDailyPriceRanges asks the API to create a daily recurring range.
func (c *Client) CreateDailyPriceRanges(ctx context.Context, p pricing.DailyPlan) error {
	return c.do(ctx, "CreateDailyPriceRanges", http.MethodPost, "/CreateDailyPriceRanges", nil, NewDailyRequest(p), nil)
}

// Users fetches one page of the user list.
func (c *Client) Users(ctx context.Context, q UserQuery) (UserPage, error) {
	query := url.Values{
		"pageNumber": {strconv.Itoa(q.PageNumber)},
		"pageSize":   {strconv.Itoa(q.PageSize)},
		"searchTerm": {q.SearchTerm},
	}

	var page UserPage
	if err := c.do(ctx, "Users", http.MethodGet, "/Users", query, nil, &page); err != nil {
		return UserPage{}, err
	}
	if page.Items == nil {
		page.Items = []User{}
	}
	return page, nil
}

// do performs one API call. A nil out skips response decoding.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{Op: op, Kind: KindStatus, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(text))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Kind: KindDecode, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// newRequest creates a new HTTP request with authentication.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}
