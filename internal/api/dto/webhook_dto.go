package dto

// GithubWebhookPayload is the subset of GitHub's issue event payloads the
// engine consumes.
type GithubWebhookPayload struct {
	Action     string          `json:"action"`
	Issue      *GithubIssue    `json:"issue"`
	Label      *GithubLabel    `json:"label"`
	Comment    *GithubComment  `json:"comment"`
	Repository *GithubRepoInfo `json:"repository"`
	Sender     *GithubUser     `json:"sender"`
}

// GithubIssue mirrors the fields used from the REST issue object.
type GithubIssue struct {
	Number int           `json:"number"`
	Title  string        `json:"title"`
	State  string        `json:"state"`
	Labels []GithubLabel `json:"labels"`
	User   *GithubUser   `json:"user"`
}

// GithubLabel is an issue label.
type GithubLabel struct {
	Name string `json:"name"`
}

// GithubComment is an issue comment.
type GithubComment struct {
	Body string      `json:"body"`
	User *GithubUser `json:"user"`
}

// GithubRepoInfo identifies the repository an event came from.
type GithubRepoInfo struct {
	FullName string `json:"full_name"`
}

// GithubUser identifies the acting account.
type GithubUser struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}
