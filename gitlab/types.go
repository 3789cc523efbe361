package gitlab

// PushEvent represents a push to a repository branch
type PushEvent struct {
	ObjectKind        string   `json:"object_kind"`
	Before            string   `json:"before"`
	After             string   `json:"after"`
	Ref               string   `json:"ref"`
	CheckoutSHA       string   `json:"checkout_sha"`
	UserID            int64    `json:"user_id"`
	UserName          string   `json:"user_name"`
	UserUsername      string   `json:"user_username"`
	UserEmail         string   `json:"user_email"`
	ProjectID         int64    `json:"project_id"`
	Project           Project  `json:"project"`
	Commits           []Commit `json:"commits"`
	TotalCommitsCount int      `json:"total_commits_count"`
}

// TagPushEvent represents a pushed or deleted tag
type TagPushEvent struct {
	ObjectKind  string  `json:"object_kind"`
	Before      string  `json:"before"`
	After       string  `json:"after"`
	Ref         string  `json:"ref"`
	CheckoutSHA string  `json:"checkout_sha"`
	UserID      int64   `json:"user_id"`
	UserName    string  `json:"user_name"`
	ProjectID   int64   `json:"project_id"`
	Project     Project `json:"project"`
}

// Project represents the project a delivery originates from
type Project struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`
	DefaultBranch     string `json:"default_branch"`
	Namespace         string `json:"namespace"`
	VisibilityLevel   int    `json:"visibility_level"`
}

// Commit represents a single commit in a push
type Commit struct {
	ID        string   `json:"id"`
	Message   string   `json:"message"`
	Title     string   `json:"title"`
	Timestamp string   `json:"timestamp"`
	URL       string   `json:"url"`
	Author    Author   `json:"author"`
	Added     []string `json:"added"`
	Modified  []string `json:"modified"`
	Removed   []string `json:"removed"`
}

// Author identifies a commit author
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// User represents the GitLab account that triggered an event
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Email     string `json:"email"`
}

// IssueEvent represents activity on an issue
type IssueEvent struct {
	ObjectKind       string          `json:"object_kind"`
	User             User            `json:"user"`
	Project          Project         `json:"project"`
	ObjectAttributes IssueAttributes `json:"object_attributes"`
}

// IssueAttributes carries the issue fields of an issue event
type IssueAttributes struct {
	ID          int64  `json:"id"`
	IID         int64  `json:"iid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	State       string `json:"state"`
	Action      string `json:"action"`
	URL         string `json:"url"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// MergeRequestEvent represents activity on a merge request
type MergeRequestEvent struct {
	ObjectKind       string                 `json:"object_kind"`
	User             User                   `json:"user"`
	Project          Project                `json:"project"`
	ObjectAttributes MergeRequestAttributes `json:"object_attributes"`
}

// MergeRequestAttributes carries the merge request fields of a merge
// request event
type MergeRequestAttributes struct {
	ID           int64  `json:"id"`
	IID          int64  `json:"iid"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	State        string `json:"state"`
	Action       string `json:"action"`
	MergeStatus  string `json:"merge_status"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	URL          string `json:"url"`
}
