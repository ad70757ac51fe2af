// Package reddit is the content source: it reads comments from Reddit and
// publishes the digest comments through the OAuth API.
package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tracker-bot/models"

	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL  = "https://oauth.reddit.com"
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	// maxPerRequest is the listing and /api/info page size limit.
	maxPerRequest = 100
)

// Client talks to the Reddit API.
type Client struct {
	http    *http.Client
	baseURL string
}

// New returns a client authenticated with a long-lived refresh token. The access
// token is refreshed automatically.
func New(ctx context.Context, cfg models.RedditConfig, timeout time.Duration) *Client {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	// Reddit rejects requests without a descriptive User-Agent, token requests included.
	base := &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{base: http.DefaultTransport, userAgent: cfg.UserAgent},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	httpClient := oauth2.NewClient(ctx, conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}))
	httpClient.Timeout = timeout

	return NewWithHTTPClient(cfg.BaseURL, httpClient)
}

// NewWithHTTPClient returns a client using an already authenticated HTTP client.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}

// ListRecent returns up to limit of the newest comments in a subreddit feed.
// Feeds larger than one page are followed with the "after" cursor.
func (c *Client) ListRecent(ctx context.Context, feed string, limit int) ([]models.Post, error) {
	var posts []models.Post
	after := ""
	for len(posts) < limit {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(min(limit-len(posts), maxPerRequest)))
		if after != "" {
			q.Set("after", after)
		}

		var l listing
		if err := c.get(ctx, "/r/"+url.PathEscape(feed)+"/comments", q, &l); err != nil {
			return nil, fmt.Errorf("list comments of r/%s: %w", feed, err)
		}
		posts = append(posts, l.posts()...)
		if l.Data.After == "" || len(l.Data.Children) == 0 {
			break
		}
		after = l.Data.After
	}
	return posts, nil
}

// GetByIDs looks up comments by id, batching requests. Ids the API does not
// return are absent from the result; removed comments come back with the
// "[deleted]" author.
func (c *Client) GetByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	var posts []models.Post
	for start := 0; start < len(ids); start += maxPerRequest {
		end := min(start+maxPerRequest, len(ids))
		names := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			names = append(names, "t1_"+stripKind(id))
		}

		q := url.Values{}
		q.Set("id", strings.Join(names, ","))
		var l listing
		if err := c.get(ctx, "/api/info", q, &l); err != nil {
			return nil, fmt.Errorf("look up %d comments: %w", len(names), err)
		}
		posts = append(posts, l.posts()...)
	}
	return posts, nil
}

// Submit replies to a thread and returns the created comment.
func (c *Client) Submit(ctx context.Context, threadID, text string) (models.Post, error) {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", "t3_"+stripKind(threadID))
	form.Set("text", text)

	var resp commentResponse
	if err := c.post(ctx, "/api/comment", form, &resp); err != nil {
		return models.Post{}, fmt.Errorf("comment on thread %s: %w", threadID, err)
	}
	if len(resp.JSON.Errors) > 0 {
		return models.Post{}, fmt.Errorf("comment on thread %s rejected: %s", threadID, apiErrors(resp.JSON.Errors))
	}
	if len(resp.JSON.Data.Things) == 0 {
		return models.Post{}, fmt.Errorf("comment on thread %s: empty response", threadID)
	}
	return resp.JSON.Data.Things[0].Data.toPost(), nil
}

// Edit replaces the text of one of our comments.
func (c *Client) Edit(ctx context.Context, postID, text string) error {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", "t1_"+stripKind(postID))
	form.Set("text", text)

	var resp commentResponse
	if err := c.post(ctx, "/api/editusertext", form, &resp); err != nil {
		return fmt.Errorf("edit comment %s: %w", postID, err)
	}
	if len(resp.JSON.Errors) > 0 {
		return fmt.Errorf("edit comment %s rejected: %s", postID, apiErrors(resp.JSON.Errors))
	}
	return nil
}

// Delete removes one of our comments.
func (c *Client) Delete(ctx context.Context, postID string) error {
	form := url.Values{}
	form.Set("id", "t1_"+stripKind(postID))
	if err := c.post(ctx, "/api/del", form, nil); err != nil {
		return fmt.Errorf("delete comment %s: %w", postID, err)
	}
	return nil
}

// PinAndLock distinguishes a comment as a sticky moderator comment and locks
// it against replies.
func (c *Client) PinAndLock(ctx context.Context, postID string) error {
	name := "t1_" + stripKind(postID)

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("id", name)
	form.Set("how", "yes")
	form.Set("sticky", "true")
	if err := c.post(ctx, "/api/distinguish", form, nil); err != nil {
		return fmt.Errorf("distinguish comment %s: %w", postID, err)
	}

	form = url.Values{}
	form.Set("id", name)
	if err := c.post(ctx, "/api/lock", form, nil); err != nil {
		return fmt.Errorf("lock comment %s: %w", postID, err)
	}
	return nil
}

// Follow adds a user to the account's friends and returns the canonical username.
func (c *Client) Follow(ctx context.Context, username string) (string, error) {
	body, err := json.Marshal(map[string]string{"name": username})
	if err != nil {
		return "", err
	}
	var resp friendResponse
	if err := c.do(ctx, http.MethodPut, "/api/v1/me/friends/"+url.PathEscape(username), nil, "application/json", bytes.NewReader(body), &resp); err != nil {
		return "", fmt.Errorf("follow %s: %w", username, err)
	}
	if resp.Name == "" {
		return username, nil
	}
	return resp.Name, nil
}

// Unfollow removes a user from the account's friends.
func (c *Client) Unfollow(ctx context.Context, username string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/v1/me/friends/"+url.PathEscape(username), nil, "", nil, nil); err != nil {
		return fmt.Errorf("unfollow %s: %w", username, err)
	}
	return nil
}

// UserAbout returns a user's public profile and their most recent comments.
func (c *Client) UserAbout(ctx context.Context, username string, recent int) (models.UserAbout, error) {
	var about aboutResponse
	if err := c.get(ctx, "/user/"+url.PathEscape(username)+"/about", nil, &about); err != nil {
		return models.UserAbout{}, fmt.Errorf("about %s: %w", username, err)
	}
	user := models.UserAbout{
		Name:    about.Data.Name,
		Created: int64(about.Data.CreatedUTC),
		IconURL: strings.SplitN(about.Data.IconImg, "?", 2)[0],
	}

	if recent > 0 {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(min(recent, maxPerRequest)))
		var l listing
		if err := c.get(ctx, "/user/"+url.PathEscape(username)+"/comments", q, &l); err != nil {
			return models.UserAbout{}, fmt.Errorf("comments of %s: %w", username, err)
		}
		user.Comments = l.posts()
	}
	return user, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, q, "", nil, out)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), out)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, contentType string, body io.Reader, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %s %s returned %d", models.ErrSourceUnavailable, method, path, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, models.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if remaining := resp.Header.Get("X-Ratelimit-Remaining"); remaining != "" {
		if f, err := strconv.ParseFloat(remaining, 64); err == nil && f < 5 {
			log.Printf("[reddit] rate limit nearly exhausted: %s requests left, resets in %ss", remaining, resp.Header.Get("X-Ratelimit-Reset"))
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
