package models

// DeletedAuthor is what the source reports as the author of a removed post.
const DeletedAuthor = "[deleted]"

// Post is a post as seen on the content source.
type Post struct {
	ID       string
	ThreadID string
	// ParentID is the id of the post being replied to; empty when replying to the thread root.
	ParentID  string
	Author    string
	Forum     string
	Body      string
	Created   int64
	Edited    int64 // 0 when never edited
	Permalink string
}

// IsReply reports whether the post answers another post rather than the thread itself.
func (p Post) IsReply() bool {
	return p.ParentID != ""
}

// Deleted reports whether the source marks the post as removed.
func (p Post) Deleted() bool {
	return p.Author == DeletedAuthor
}

// Epoch is the post's last known modification time.
func (p Post) Epoch() int64 {
	if p.Edited != 0 {
		return p.Edited
	}
	return p.Created
}

// ApprovalStatus is the stored moderation decision for a TrackedPost.
type ApprovalStatus int

const (
	ApprovalNone     ApprovalStatus = -1
	ApprovalDenied   ApprovalStatus = 0
	ApprovalApproved ApprovalStatus = 1
)

func (s ApprovalStatus) String() string {
	switch s {
	case ApprovalApproved:
		return "Approved"
	case ApprovalDenied:
		return "Denied"
	default:
		return "None"
	}
}

// Flip returns the opposite decision. A post without a decision flips to Approved.
func (s ApprovalStatus) Flip() ApprovalStatus {
	if s == ApprovalApproved {
		return ApprovalDenied
	}
	return ApprovalApproved
}

// TrackedPost is the persisted record of an observed post.
type TrackedPost struct {
	Seq            int64          `db:"seq"`
	PostID         string         `db:"post_id"`
	ThreadID       string         `db:"thread_id"`
	Author         string         `db:"author"`
	Status         ApprovalStatus `db:"status"`
	SupervisorName string         `db:"supervisor_name"`
	SupervisorID   string         `db:"supervisor_id"`
	LastSeenEpoch  int64          `db:"last_seen_epoch"`
	Text           string         `db:"text"`
}

// ContextSnippet is the text of a post that a tracked post replies to.
type ContextSnippet struct {
	ContextID   string `db:"context_id"`
	ThreadID    string `db:"thread_id"`
	OwnerPostID string `db:"owner_post_id"`
	Active      bool   `db:"active"`
	Text        string `db:"text"`
}

// Thread maps a discussion thread to its published digest.
type Thread struct {
	ThreadID     string `db:"thread_id"`
	DigestPostID string `db:"digest_post_id"`
	UpdatedAt    int64  `db:"updated_at"`
}

// ApprovalRequest asks moderators to approve or deny a newly recorded post.
type ApprovalRequest struct {
	Post   Post
	Author TrackedAuthor
	// Context is the text of the replied-to post, empty for a reply to the thread.
	Context string
}

// ModerationEntry is one line of the moderation log.
type ModerationEntry struct {
	Post       Post
	Forum      string
	Supervisor string
	Approved   bool
	// Invalid marks an action attempted on a post the source reports deleted.
	Invalid      bool
	DigestPostID string
}

// UserAbout is the public profile of a source account.
type UserAbout struct {
	Name     string
	Created  int64
	IconURL  string
	Comments []Post
}
