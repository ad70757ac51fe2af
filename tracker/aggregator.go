package tracker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"tracker-bot/models"
	"tracker-bot/utils"
)

// Digest publish outcomes reported to the Observer.
const (
	DigestCreated = "created"
	DigestEdited  = "edited"
	DigestDeleted = "deleted"
)

// digestEntry is the data every digest template is rendered with.
type digestEntry struct {
	Author    string
	Permalink string
	Timestamp string
	Expertise string
	Context   string
	Comment   string
	// Body is the rendered context followed by the rendered comment.
	Body string
}

type digestTemplates struct {
	entry          *template.Template
	entryExpertise *template.Template
	context        *template.Template
	comment        *template.Template
	footer         string
	totalLimit     int
	contextLimit   int
}

func parseDigestTemplates(f models.FormatConfig) (*digestTemplates, error) {
	parse := func(name, text string) (*template.Template, error) {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		return tmpl, nil
	}

	d := &digestTemplates{footer: f.Footer, totalLimit: f.TotalCharLimit, contextLimit: f.ContextCharLimit}
	var err error
	if d.entry, err = parse("entry", f.EntryTemplate); err != nil {
		return nil, err
	}
	if d.entryExpertise, err = parse("entry_with_expertise", f.EntryWithExpertiseTemplate); err != nil {
		return nil, err
	}
	if d.context, err = parse("context", f.ContextTemplate); err != nil {
		return nil, err
	}
	if d.comment, err = parse("comment", f.CommentTemplate); err != nil {
		return nil, err
	}
	return d, nil
}

func render(tmpl *template.Template, data digestEntry) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// Permalink is the forum-relative link to a post.
func (t *Tracker) Permalink(threadID, postID string) string {
	return fmt.Sprintf("/r/%s/comments/%s/-/%s/", t.opts.TargetForum, threadID, postID)
}

// BuildDigest renders the digest text for a thread. A thread without approved
// posts has an empty digest.
func (t *Tracker) BuildDigest(ctx context.Context, threadID string) (string, error) {
	unlock := t.threads.Lock(threadID)
	defer unlock()
	return t.buildDigest(ctx, threadID)
}

func (t *Tracker) buildDigest(ctx context.Context, threadID string) (string, error) {
	posts, err := t.store.ApprovedPosts(ctx, threadID)
	if err != nil {
		return "", err
	}
	if len(posts) == 0 {
		return "", nil
	}
	contexts, err := t.store.ActiveContexts(ctx, threadID)
	if err != nil {
		return "", err
	}

	entries := make([]string, 0, len(posts))
	for _, p := range posts {
		entry, err := t.renderEntry(p, contexts[p.PostID])
		if err != nil {
			return "", fmt.Errorf("post %s: %w", p.PostID, err)
		}
		entries = append(entries, entry)
	}
	return strings.Join(entries, "\n\n") + t.digest.footer, nil
}

func (t *Tracker) renderEntry(p models.TrackedPost, contextText string) (string, error) {
	d := t.digest
	data := digestEntry{
		Author:    p.Author,
		Permalink: t.Permalink(p.ThreadID, p.PostID),
		Timestamp: utils.DigestTimestamp(p.LastSeenEpoch),
		Comment:   utils.SmartSubstring(p.Text, '.', d.totalLimit),
	}
	if a, ok := t.roster.Find(p.Author); ok {
		data.Expertise = a.Expertise
	}

	var body strings.Builder
	if contextText != "" {
		data.Context = utils.SmartSubstring(utils.StripMarkdown(contextText), ' ', d.contextLimit)
		rendered, err := render(d.context, data)
		if err != nil {
			return "", err
		}
		body.WriteString(rendered)
	}
	rendered, err := render(d.comment, data)
	if err != nil {
		return "", err
	}
	body.WriteString(rendered)
	data.Body = body.String()

	if data.Expertise != "" {
		return render(d.entryExpertise, data)
	}
	return render(d.entry, data)
}

// PublishDigest brings the remote digest of a thread in line with text and
// returns the digest post id, empty when the digest was removed or never existed.
func (t *Tracker) PublishDigest(ctx context.Context, threadID, text string) (string, error) {
	unlock := t.threads.Lock(threadID)
	defer unlock()
	return t.publishDigest(ctx, threadID, text)
}

func (t *Tracker) publishDigest(ctx context.Context, threadID, text string) (string, error) {
	thread, exists, err := t.store.GetThread(ctx, threadID)
	if err != nil {
		return "", err
	}

	if text == "" {
		if !exists {
			return "", nil
		}
		err := t.store.RetireThread(ctx, threadID, func(ctx context.Context) error {
			return t.source.Delete(ctx, thread.DigestPostID)
		})
		if err != nil {
			return "", fmt.Errorf("retire digest of thread %s: %w", threadID, err)
		}
		t.obs.DigestPublished(DigestDeleted)
		logf(ctx, "removed digest %s of thread %s", thread.DigestPostID, threadID)
		return "", nil
	}

	if !exists {
		posted, err := t.source.Submit(ctx, threadID, text)
		if err != nil {
			return "", fmt.Errorf("post digest to thread %s: %w", threadID, err)
		}
		// Save the mapping before pinning so a pin failure is retried as an edit
		// instead of a second digest.
		if err := t.store.SaveThread(ctx, threadID, posted.ID); err != nil {
			// The thread stays pending and the next drain submits again.
			if derr := t.source.Delete(ctx, posted.ID); derr != nil {
				err = errors.Join(err, fmt.Errorf("delete unsaved digest %s: %w", posted.ID, derr))
			}
			return "", err
		}
		t.obs.DigestPublished(DigestCreated)
		if err := t.source.PinAndLock(ctx, posted.ID); err != nil {
			return posted.ID, fmt.Errorf("pin digest %s: %w", posted.ID, err)
		}
		logf(ctx, "created digest %s in thread %s", posted.ID, threadID)
		return posted.ID, nil
	}

	if err := t.source.Edit(ctx, thread.DigestPostID, text); err != nil {
		return thread.DigestPostID, fmt.Errorf("edit digest %s: %w", thread.DigestPostID, err)
	}
	if err := t.store.TouchThread(ctx, threadID); err != nil {
		return thread.DigestPostID, err
	}
	t.obs.DigestPublished(DigestEdited)
	return thread.DigestPostID, nil
}

// resync rebuilds and republishes a thread's digest. The caller holds the thread lock.
func (t *Tracker) resync(ctx context.Context, threadID string) (string, error) {
	text, err := t.buildDigest(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("build digest of thread %s: %w", threadID, err)
	}
	return t.publishDigest(ctx, threadID, text)
}
