package spira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apierrors "spirareport/internal/errors"
)

// ServicePath is the REST prefix of the Spira v5 API.
const ServicePath = "/Services/v5_0/RestService.svc/"

// DefaultTimeout bounds a single request to Spira.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is kept in SpiraError.
const maxErrorBody = 4 << 10

// Client handles Spira API interactions.
type Client struct {
	BaseURL    *url.URL
	Username   string
	APIToken   string
	HTTPClient *http.Client
}

// ParseBaseURL parses the Spira service URL. Only absolute http and https URLs are accepted.
func ParseBaseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("service URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid service URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid service URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid service URL %q: missing host", raw)
	}
	return u, nil
}

// NewClient creates a new Spira client.
func NewClient(baseURL, username, apiToken string) (*Client, error) {
	u, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL:  u,
		Username: username,
		APIToken: apiToken,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}, nil
}

// endpoint joins rel onto the service path of the base URL and adds the credential query.
// The query is written by hand so username precedes api-key as Spira documents it.
func (c *Client) endpoint(rel string) *url.URL {
	u := *c.BaseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + ServicePath + rel
	u.RawPath = ""
	u.Fragment = ""
	u.RawQuery = "username=" + url.QueryEscape(c.Username) + "&api-key=" + url.QueryEscape(c.APIToken)
	return &u
}

// RecordEndpoint returns the URL test runs for projectID are posted to.
func (c *Client) RecordEndpoint(projectID int) *url.URL {
	return c.endpoint("projects/" + strconv.Itoa(projectID) + "/test-runs/record")
}

// RecordTestRun posts one automated test run to the project.
// A 2xx answer without a decodable body still counts as recorded.
func (c *Client) RecordTestRun(ctx context.Context, projectID int, run TestRun) (*RecordedTestRun, error) {
	body, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal test run: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.RecordEndpoint(projectID).String(), bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorFromResponse(resp)
	}

	recorded := &RecordedTestRun{}
	data, err := io.ReadAll(resp.Body)
	if err == nil && len(bytes.TrimSpace(data)) > 0 {
		_ = json.Unmarshal(data, recorded)
	}
	return recorded, nil
}

// GetProject fetches a project, which verifies both the credentials and project access.
func (c *Client) GetProject(ctx context.Context, projectID int) (*Project, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint("projects/"+strconv.Itoa(projectID)).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}

	var project Project
	if err := json.NewDecoder(resp.Body).Decode(&project); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &project, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return apierrors.NewSpiraError(resp.StatusCode, strings.TrimSpace(string(body)))
}
