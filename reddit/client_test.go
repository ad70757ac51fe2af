package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tracker-bot/models"
)

const commentListing = `{"kind":"Listing","data":{"after":null,"children":[
  {"kind":"t1","data":{"id":"c1","name":"t1_c1","link_id":"t3_th1","parent_id":"t3_th1","author":"alice",
    "subreddit":"Games","body":"fish &amp; chips","created_utc":1700000000.0,"edited":false,
    "permalink":"/r/Games/comments/th1/-/c1/"}},
  {"kind":"t1","data":{"id":"c2","name":"t1_c2","link_id":"t3_th1","parent_id":"t1_c1","author":"[deleted]",
    "subreddit":"Games","body":"[deleted]","created_utc":1700000100.0,"edited":1700000200.5,
    "permalink":"/r/Games/comments/th1/-/c2/"}}
]}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	s := httptest.NewServer(handler)
	t.Cleanup(s.Close)
	return NewWithHTTPClient(s.URL, &http.Client{Timeout: 2 * time.Second})
}

func TestListRecent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/friends/comments" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "50" {
			t.Errorf("limit = %s", r.URL.Query().Get("limit"))
		}
		_, _ = w.Write([]byte(commentListing))
	})

	posts, err := c.ListRecent(context.Background(), "friends", 50)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}

	first := posts[0]
	if first.ID != "c1" || first.ThreadID != "th1" || first.IsReply() || first.Forum != "Games" {
		t.Errorf("first post = %+v", first)
	}
	if first.Body != "fish & chips" {
		t.Errorf("body not unescaped: %q", first.Body)
	}
	if first.Edited != 0 || first.Epoch() != 1700000000 {
		t.Errorf("first epoch = %d edited = %d", first.Epoch(), first.Edited)
	}

	second := posts[1]
	if second.ParentID != "c1" || !second.IsReply() {
		t.Errorf("second parent = %q", second.ParentID)
	}
	if !second.Deleted() {
		t.Error("second post should be deleted")
	}
	if second.Edited != 1700000200 {
		t.Errorf("second edited = %d", second.Edited)
	}
}

func TestListRecentPaginates(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		after := "t1_c1"
		if r.URL.Query().Get("after") != "" {
			after = ""
		}
		resp := map[string]any{"kind": "Listing", "data": map[string]any{
			"after": after,
			"children": []any{map[string]any{"kind": "t1", "data": map[string]any{
				"id": "c" + r.URL.Query().Get("limit"), "link_id": "t3_x", "parent_id": "t3_x", "author": "a",
			}}},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	posts, err := c.ListRecent(context.Background(), "sub", 150)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if calls != 2 || len(posts) != 2 {
		t.Errorf("calls = %d posts = %d, want 2 and 2", calls, len(posts))
	}
	if posts[0].ID != "c100" || posts[1].ID != "c149" {
		t.Errorf("page sizes = %s, %s", posts[0].ID, posts[1].ID)
	}
}

func TestGetByIDsBatches(t *testing.T) {
	var batches []int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("id"), ",")
		batches = append(batches, len(ids))
		if !strings.HasPrefix(ids[0], "t1_") {
			t.Errorf("id not prefixed: %s", ids[0])
		}
		_, _ = w.Write([]byte(`{"kind":"Listing","data":{"children":[]}}`))
	})

	ids := make([]string, 205)
	for i := range ids {
		ids[i] = "id"
	}
	if _, err := c.GetByIDs(context.Background(), ids); err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(batches) != 3 || batches[0] != 100 || batches[2] != 5 {
		t.Errorf("batches = %v", batches)
	}
}

func TestSubmit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/comment" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("thing_id") != "t3_th1" || r.PostForm.Get("text") != "digest" {
			t.Errorf("form = %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"json":{"errors":[],"data":{"things":[{"kind":"t1","data":{"id":"d1","link_id":"t3_th1","parent_id":"t3_th1","author":"bot"}}]}}}`))
	})

	p, err := c.Submit(context.Background(), "th1", "digest")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p.ID != "d1" || p.ThreadID != "th1" {
		t.Errorf("post = %+v", p)
	}
}

func TestSubmitAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"json":{"errors":[["THREAD_LOCKED","locked","parent"]]}}`))
	})

	_, err := c.Submit(context.Background(), "th1", "digest")
	if err == nil || !strings.Contains(err.Error(), "THREAD_LOCKED") {
		t.Errorf("err = %v, want THREAD_LOCKED", err)
	}
}

func TestPinAndLock(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("id") != "t1_d1" {
			t.Errorf("id = %s", r.PostForm.Get("id"))
		}
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	})

	if err := c.PinAndLock(context.Background(), "d1"); err != nil {
		t.Fatalf("PinAndLock: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/api/distinguish" || paths[1] != "/api/lock" {
		t.Errorf("paths = %v", paths)
	}
}

func TestFollowAndUnfollow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/me/friends/Alice" {
			t.Errorf("path = %s", r.URL.Path)
		}
		switch r.Method {
		case http.MethodPut:
			_, _ = w.Write([]byte(`{"name":"Alice","id":"t2_1"}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("method = %s", r.Method)
		}
	})

	name, err := c.Follow(context.Background(), "Alice")
	if err != nil || name != "Alice" {
		t.Errorf("Follow = %q, %v", name, err)
	}
	if err := c.Unfollow(context.Background(), "Alice"); err != nil {
		t.Errorf("Unfollow: %v", err)
	}
}

func TestUserAbout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user/alice/about":
			_, _ = w.Write([]byte(`{"kind":"t2","data":{"name":"Alice","created_utc":1600000000.0,"icon_img":"https://img/x.png?s=1"}}`))
		case "/user/alice/comments":
			_, _ = w.Write([]byte(commentListing))
		default:
			t.Errorf("path = %s", r.URL.Path)
		}
	})

	u, err := c.UserAbout(context.Background(), "alice", 3)
	if err != nil {
		t.Fatalf("UserAbout: %v", err)
	}
	if u.Name != "Alice" || u.Created != 1600000000 || u.IconURL != "https://img/x.png" || len(u.Comments) != 2 {
		t.Errorf("about = %+v", u)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"server error", http.StatusBadGateway, models.ErrSourceUnavailable},
		{"rate limited", http.StatusTooManyRequests, models.ErrSourceUnavailable},
		{"not found", http.StatusNotFound, models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream err", tt.status)
			})
			_, err := c.GetByIDs(context.Background(), []string{"x"})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTimeoutIsSourceUnavailable(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer s.Close()

	c := NewWithHTTPClient(s.URL, &http.Client{Timeout: 100 * time.Millisecond})
	_, err := c.ListRecent(context.Background(), "sub", 10)
	if !errors.Is(err, models.ErrSourceUnavailable) {
		t.Errorf("err = %v, want ErrSourceUnavailable", err)
	}
}

func TestNewRefreshesToken(t *testing.T) {
	var tokenCalls int
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "tracker-test/1.0" {
			t.Errorf("%s missing user agent: %q", r.URL.Path, r.Header.Get("User-Agent"))
		}
		switch r.URL.Path {
		case "/token":
			tokenCalls++
			user, pass, ok := r.BasicAuth()
			if !ok || user != "id" || pass != "secret" {
				t.Errorf("basic auth = %q %q %v", user, pass, ok)
			}
			_ = r.ParseForm()
			if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "refresh" {
				t.Errorf("token form = %v", r.PostForm)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600}`))
		case "/r/sub/comments":
			if r.Header.Get("Authorization") != "Bearer abc" {
				t.Errorf("authorization = %q", r.Header.Get("Authorization"))
			}
			_, _ = w.Write([]byte(commentListing))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer s.Close()

	c := New(context.Background(), models.RedditConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh",
		UserAgent:    "tracker-test/1.0",
		BaseURL:      s.URL,
		TokenURL:     s.URL + "/token",
	}, 2*time.Second)

	for i := 0; i < 2; i++ {
		if _, err := c.ListRecent(context.Background(), "sub", 10); err != nil {
			t.Fatalf("ListRecent: %v", err)
		}
	}
	if tokenCalls != 1 {
		t.Errorf("token requested %d times, want 1", tokenCalls)
	}
}

func TestEditedTimeDecoding(t *testing.T) {
	tests := map[string]int64{`false`: 0, `true`: 0, `1700000000.9`: 1700000000, `null`: 0}
	for in, want := range tests {
		var e editedTime
		if err := json.Unmarshal([]byte(in), &e); err != nil {
			t.Errorf("%s: %v", in, err)
			continue
		}
		if int64(e) != want {
			t.Errorf("%s decoded to %d, want %d", in, e, want)
		}
	}
}
