// internal/api/client.go
//
// REST client for the mapping-pipeline API.
//
// Context
// -------
// The console reads scan reports and their reference entities, and sends
// single-attribute PATCHes.  Transport failures and 5xx responses are
// retried by go-retryablehttp; anything still non-2xx after that becomes a
// *StatusError carrying the server's `detail` message when present.
//
// Endpoints
// ---------
//
//	GET   /scanreports/
//	GET   /datapartners/?id__in=1,2,3
//	GET   /usersfilter/?id__in=1,2,3
//	GET   /scanreporttables/
//	GET   /scanreportfields/
//	PATCH /scanreports/<id>/
//
// Notes
// -----
//   - *Client satisfies scanreport.Source and scanreport.Patcher.
//   - Oxford commas, two spaces after periods.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/yanizio/scanconsole/internal/scanreport"
)

// compile-time assertions
var (
	_ scanreport.Source  = (*Client)(nil)
	_ scanreport.Patcher = (*Client)(nil)
)

// Options configure a Client.  BaseURL is required.
type Options struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	Retries   int
	RetryWait time.Duration
}

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// Client is safe for concurrent use.
type Client struct {
	base  *url.URL
	token string
	http  *retryablehttp.Client
}

// New builds a Client from opts.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url %q: invalid", opts.BaseURL)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.Retries
	if opts.RetryWait > 0 {
		rc.RetryWaitMin = opts.RetryWait
		rc.RetryWaitMax = 4 * opts.RetryWait
	}
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}
	rc.Logger = leveled{zap.S().Named("api")}
	// Keep the final response so its status and detail reach the caller.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{base: base, token: opts.Token, http: rc}, nil
}

/*──────────────────────────── reads ────────────────────────────────────────*/

// ListReports returns every scan report with raw foreign keys.
func (c *Client) ListReports(ctx context.Context) ([]scanreport.Report, error) {
	var out []scanreport.Report
	if err := c.do(ctx, http.MethodGet, "/scanreports/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DataPartners returns the partners whose ids are listed.
func (c *Client) DataPartners(ctx context.Context, ids []int) ([]scanreport.DataPartner, error) {
	var out []scanreport.DataPartner
	if err := c.do(ctx, http.MethodGet, "/datapartners/", idIn(ids), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Authors returns the users whose ids are listed.
func (c *Client) Authors(ctx context.Context, ids []int) ([]scanreport.Author, error) {
	var out []scanreport.Author
	if err := c.do(ctx, http.MethodGet, "/usersfilter/", idIn(ids), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Tables returns every scan-report table.
func (c *Client) Tables(ctx context.Context) ([]scanreport.Table, error) {
	var out []scanreport.Table
	if err := c.do(ctx, http.MethodGet, "/scanreporttables/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Fields returns every scan-report field.
func (c *Client) Fields(ctx context.Context) ([]scanreport.Field, error) {
	var out []scanreport.Field
	if err := c.do(ctx, http.MethodGet, "/scanreportfields/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

/*──────────────────────────── writes ───────────────────────────────────────*/

// PatchReport sends a partial update of one report.  The response body is
// discarded; the console reconciles from its own request.
func (c *Client) PatchReport(ctx context.Context, id int, p scanreport.Patch) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, "/scanreports/"+strconv.Itoa(id)+"/", nil, body, nil)
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = q.Encode()

	var rb any
	if body != nil {
		rb = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), rb)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Detail: detail(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// idIn encodes ids as id__in=1,2,3.
func idIn(ids []int) url.Values {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return url.Values{"id__in": {strings.Join(parts, ",")}}
}

// detail extracts {"detail": "..."} from an error body, falling back to a
// trimmed prefix of the raw text.
func detail(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4<<10))
	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Detail != "" {
		return body.Detail
	}
	return strings.TrimSpace(string(raw))
}

// leveled adapts zap to retryablehttp.LeveledLogger.
type leveled struct{ s *zap.SugaredLogger }

func (l leveled) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l leveled) Info(msg string, kv ...any)  { l.s.Debugw(msg, kv...) }
func (l leveled) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l leveled) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
