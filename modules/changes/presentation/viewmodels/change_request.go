package viewmodels

// Participant is a user reference enriched with display identity. Name falls
// back to the raw account ID when the directory has no entry.
type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type Comment struct {
	ID        string      `json:"id"`
	Author    Participant `json:"author"`
	Body      string      `json:"body"`
	CreatedAt string      `json:"created_at"`
}

type ChangeRequest struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	Reason            string        `json:"reason,omitempty"`
	Impact            string        `json:"impact,omitempty"`
	AdditionalInfo    string        `json:"additional_info,omitempty"`
	ProjectID         string        `json:"project_id"`
	Requester         Participant   `json:"requester"`
	RequiredApprovers []Participant `json:"required_approvers"`
	IssueIDs          []string      `json:"issue_ids"`
	ChangeWindowStart string        `json:"change_window_start,omitempty"`
	ChangeWindowEnd   string        `json:"change_window_end,omitempty"`
	ValidationStatus  string        `json:"validation_status"`
	ApprovalStatus    string        `json:"approval_status"`
	Phase             string        `json:"phase"`
	Comments          []Comment     `json:"comments"`
	Version           int64         `json:"version"`
	CreatedAt         string        `json:"created_at"`
	UpdatedAt         string        `json:"updated_at"`
}
