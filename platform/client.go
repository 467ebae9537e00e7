package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// Client talks to the platform's REST API. It implements both Directory
// and ModService.
type Client struct {
	Host    string
	Token   string
	HTTP    *http.Client
	Limiter *rate.Limiter
}

var _ Directory = (*Client)(nil)
var _ ModService = (*Client)(nil)

func NewClient(host, token string, requestsPerSecond int) *Client {
	return &Client{
		Host:    host,
		Token:   token,
		HTTP:    robustHTTPClient(),
		Limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

type leveledSlog struct {
	inner *slog.Logger
}

// re-writes HTTP client ERROR to WARN level (because of retries)
func (l leveledSlog) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, keysAndValues...)
}

func (l leveledSlog) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debug(msg, keysAndValues...)
}

// HTTP client with retries on connection errors, 5xx, and 429 (respecting
// 'Retry-After'). Returned client has the stdlib interface but hashicorp
// retryablehttp logic internally.
func robustHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledSlog{slog.Default().With("subsystem", "platform-client")})
	client := retryClient.StandardClient()
	client.Timeout = 20 * time.Second
	return client
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	u := c.Host + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("platform API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("platform API request failed: %s %s: status=%d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response body: %w", err)
		}
	}
	return nil
}

func (c *Client) GetUserByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/"+id, nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/v1/u/"+username, nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetSocialLinks(ctx context.Context, username string) ([]SocialLink, error) {
	var out struct {
		Links []SocialLink `json:"links"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/u/"+username+"/social_links", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Links, nil
}

func (c *Client) GetRecentPosts(ctx context.Context, username string, limit int) ([]Post, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprint(limit))
	var out struct {
		Posts []Post `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/u/"+username+"/posts", params, nil, &out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

func (c *Client) GetNewPosts(ctx context.Context, install string, limit int) ([]Post, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprint(limit))
	var out struct {
		Posts []Post `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/installs/"+install+"/posts/new", params, nil, &out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

func (c *Client) GetModerators(ctx context.Context, install string) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/installs/"+install+"/moderators", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *Client) GetApprovedUsers(ctx context.Context, install string) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/installs/"+install+"/approved_users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *Client) GetUserExtra(ctx context.Context, username string) (*UserExtra, error) {
	var extra UserExtra
	if err := c.do(ctx, http.MethodGet, "/api/v1/u/"+username+"/about", nil, nil, &extra); err != nil {
		return nil, err
	}
	return &extra, nil
}

func (c *Client) RemovePost(ctx context.Context, postID string) error {
	body := map[string]any{"id": postID}
	return c.do(ctx, http.MethodPost, "/api/v1/mod/remove_post", nil, body, nil)
}

func (c *Client) RemoveComment(ctx context.Context, commentID string, spam bool) error {
	body := map[string]any{"id": commentID, "spam": spam}
	return c.do(ctx, http.MethodPost, "/api/v1/mod/remove_comment", nil, body, nil)
}

func (c *Client) BanUser(ctx context.Context, req BanRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/mod/ban", nil, req, nil)
}

func (c *Client) SubmitComment(ctx context.Context, contentID, text string) (string, error) {
	body := map[string]any{"text": text}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/content/"+contentID+"/comments", nil, body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) DistinguishComment(ctx context.Context, commentID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/comments/"+commentID+"/distinguish", nil, nil, nil)
}

func (c *Client) SendPrivateMessage(ctx context.Context, to, subject, text string) error {
	body := map[string]any{"to": to, "subject": subject, "text": text}
	return c.do(ctx, http.MethodPost, "/api/v1/messages", nil, body, nil)
}

func (c *Client) CreateModNotification(ctx context.Context, subject, body, install string) error {
	payload := map[string]any{"subject": subject, "bodyMarkdown": body}
	return c.do(ctx, http.MethodPost, "/api/v1/installs/"+install+"/modmail", nil, payload, nil)
}
