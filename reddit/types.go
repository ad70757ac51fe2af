package reddit

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"tracker-bot/models"

	"golang.org/x/net/html"
)

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string  `json:"kind"`
	Data comment `json:"data"`
}

type comment struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	LinkID     string     `json:"link_id"`
	ParentID   string     `json:"parent_id"`
	Author     string     `json:"author"`
	Subreddit  string     `json:"subreddit"`
	Body       string     `json:"body"`
	CreatedUTC float64    `json:"created_utc"`
	Edited     editedTime `json:"edited"`
	Permalink  string     `json:"permalink"`
}

// editedTime decodes Reddit's "edited" field, which is false for unedited
// comments and a unix timestamp otherwise.
type editedTime int64

func (e *editedTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("false")) || bytes.Equal(b, []byte("true")) || bytes.Equal(b, []byte("null")) {
		*e = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*e = editedTime(f)
	return nil
}

type commentResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

type aboutResponse struct {
	Data struct {
		Name       string  `json:"name"`
		CreatedUTC float64 `json:"created_utc"`
		IconImg    string  `json:"icon_img"`
	} `json:"data"`
}

type friendResponse struct {
	Name string `json:"name"`
}

// stripKind removes a "t1_"/"t3_" style type prefix from a fullname.
func stripKind(fullname string) string {
	if len(fullname) > 3 && fullname[0] == 't' && fullname[2] == '_' {
		return fullname[3:]
	}
	return fullname
}

func (c comment) toPost() models.Post {
	p := models.Post{
		ID:        c.ID,
		ThreadID:  stripKind(c.LinkID),
		Author:    c.Author,
		Forum:     c.Subreddit,
		Body:      html.UnescapeString(c.Body),
		Created:   int64(c.CreatedUTC),
		Edited:    int64(c.Edited),
		Permalink: c.Permalink,
	}
	if strings.HasPrefix(c.ParentID, "t1_") {
		p.ParentID = stripKind(c.ParentID)
	}
	return p
}

func (l listing) posts() []models.Post {
	posts := make([]models.Post, 0, len(l.Data.Children))
	for _, t := range l.Data.Children {
		if t.Kind != "t1" {
			continue
		}
		posts = append(posts, t.Data.toPost())
	}
	return posts
}

// apiErrors flattens the [[code, message, field], ...] error list of a json api response.
func apiErrors(errs [][]any) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		b, _ := json.Marshal(e)
		parts = append(parts, string(b))
	}
	return strings.Join(parts, ", ")
}
