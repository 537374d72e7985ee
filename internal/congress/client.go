package congress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the production Congress.gov API root.
const DefaultBaseURL = "https://api.congress.gov/v3"

// DefaultTimeout bounds every upstream call.
const DefaultTimeout = 10 * time.Second

var (
	// ErrRateLimited is returned on HTTP 429 from the upstream API.
	ErrRateLimited = errors.New("congress: rate limited")
	// ErrTimeout is returned when a call exceeds the configured timeout.
	ErrTimeout = errors.New("congress: request timed out")
	// ErrNotFound is returned when the upstream does not know the bill.
	ErrNotFound = errors.New("congress: bill not found")
)

// UpstreamError covers any other non-2xx response or transport failure.
type UpstreamError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("congress: upstream failure: %v", e.Err)
	}
	return fmt.Sprintf("congress: upstream returned %s", e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// LatestAction is the most recent recorded action on a bill.
type LatestAction struct {
	ActionDate string `json:"actionDate"`
	Text       string `json:"text"`
}

// Sponsor is one sponsoring member; only present on detail payloads.
type Sponsor struct {
	FullName string `json:"fullName"`
}

// RawBill is the upstream bill shape. The list endpoint populates a subset;
// the detail endpoint returns a strict superset of the same fields.
// Every field is optional upstream.
type RawBill struct {
	Number         string        `json:"number"`
	Type           string        `json:"type"`
	Congress       json.Number   `json:"congress"`
	Title          string        `json:"title"`
	OriginChamber  string        `json:"originChamber"`
	IntroducedDate string        `json:"introducedDate"`
	LatestAction   *LatestAction `json:"latestAction,omitempty"`
	Sponsors       []Sponsor     `json:"sponsors,omitempty"`
	Summary        string        `json:"summary,omitempty"`
	UpdateDate     string        `json:"updateDate,omitempty"`
}

type listResponse struct {
	Bills      []RawBill `json:"bills"`
	Pagination struct {
		Count int    `json:"count"`
		Next  string `json:"next,omitempty"`
	} `json:"pagination"`
}

type detailResponse struct {
	Bill RawBill `json:"bill"`
}

// Client issues authenticated requests against the Congress.gov API.
// It performs no retries; retry policy belongs to the caller.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchList retrieves one upstream page of bills matching the query and
// chamber filter. It returns the page items and the total available count
// reported by the upstream pagination envelope.
func (c *Client) FetchList(ctx context.Context, query, chamber string, offset, limit int) ([]RawBill, int, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if query != "" {
		params.Set("query", query)
	}
	if chamber != "" && !strings.EqualFold(chamber, "both") {
		params.Set("chamber", strings.ToLower(chamber))
	}

	var out listResponse
	if err := c.getJSON(ctx, "/bill", params, &out); err != nil {
		return nil, 0, err
	}
	return out.Bills, out.Pagination.Count, nil
}

// FetchDetail retrieves the full record for one bill id such as "hr1234-118".
func (c *Client) FetchDetail(ctx context.Context, billID string) (RawBill, error) {
	congressNum, billType, number, err := SplitBillID(billID)
	if err != nil {
		return RawBill{}, fmt.Errorf("%w: %s", ErrNotFound, billID)
	}

	var out detailResponse
	path := fmt.Sprintf("/bill/%s/%s/%s", congressNum, billType, number)
	if err := c.getJSON(ctx, path, url.Values{"format": {"json"}}, &out); err != nil {
		return RawBill{}, err
	}
	return out.Bill, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v interface{}) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &UpstreamError{Err: err}
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &UpstreamError{Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// SplitBillID breaks a composite bill id ("hr1234-118") into its congress
// number, bill type and bill number parts.
func SplitBillID(billID string) (congressNum, billType, number string, err error) {
	parts := strings.SplitN(billID, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("malformed bill id %q", billID)
	}
	congressNum = parts[1]

	head := parts[0]
	split := len(head)
	for i, r := range head {
		if r >= '0' && r <= '9' {
			split = i
			break
		}
	}
	billType = head[:split]
	number = head[split:]
	if billType == "" || number == "" {
		return "", "", "", fmt.Errorf("malformed bill id %q", billID)
	}
	return congressNum, billType, number, nil
}
