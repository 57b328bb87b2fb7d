package mappers

import (
	"time"

	"github.com/cabflow/cabflow/modules/changes/domain/changerequest"
	"github.com/cabflow/cabflow/modules/changes/domain/directory"
	"github.com/cabflow/cabflow/modules/changes/presentation/viewmodels"
)

// ChangeRequestToViewModel renders a request for the API. identities may be
// nil or partial; any account ID without an entry degrades to showing the
// ID itself.
func ChangeRequestToViewModel(cr changerequest.ChangeRequest, identities map[string]directory.DisplayInfo) *viewmodels.ChangeRequest {
	approvers := make([]viewmodels.Participant, 0, len(cr.RequiredApprovers()))
	for _, id := range cr.RequiredApprovers() {
		approvers = append(approvers, participant(id, identities))
	}

	comments := make([]viewmodels.Comment, 0, len(cr.Comments()))
	for _, c := range cr.Comments() {
		comments = append(comments, viewmodels.Comment{
			ID:        c.ID().String(),
			Author:    participant(c.AuthorID(), identities),
			Body:      c.Body(),
			CreatedAt: c.CreatedAt().UTC().Format(time.RFC3339),
		})
	}

	issueIDs := cr.IssueIDs()
	if issueIDs == nil {
		issueIDs = []string{}
	}

	return &viewmodels.ChangeRequest{
		ID:                cr.ID().String(),
		Title:             cr.Title(),
		Description:       cr.Description(),
		Reason:            cr.Reason(),
		Impact:            cr.Impact(),
		AdditionalInfo:    cr.AdditionalInfo(),
		ProjectID:         cr.ProjectID(),
		Requester:         participant(cr.RequesterID(), identities),
		RequiredApprovers: approvers,
		IssueIDs:          issueIDs,
		ChangeWindowStart: formatOptionalTime(cr.ChangeWindowStart()),
		ChangeWindowEnd:   formatOptionalTime(cr.ChangeWindowEnd()),
		ValidationStatus:  string(cr.ValidationStatus()),
		ApprovalStatus:    string(cr.ApprovalStatus()),
		Phase:             string(cr.Phase()),
		Comments:          comments,
		Version:           cr.Version(),
		CreatedAt:         cr.CreatedAt().UTC().Format(time.RFC3339),
		UpdatedAt:         cr.UpdatedAt().UTC().Format(time.RFC3339),
	}
}

func CommentToViewModel(c changerequest.Comment, identities map[string]directory.DisplayInfo) *viewmodels.Comment {
	return &viewmodels.Comment{
		ID:        c.ID().String(),
		Author:    participant(c.AuthorID(), identities),
		Body:      c.Body(),
		CreatedAt: c.CreatedAt().UTC().Format(time.RFC3339),
	}
}

func participant(id string, identities map[string]directory.DisplayInfo) viewmodels.Participant {
	p := viewmodels.Participant{ID: id, Name: id}
	if info, ok := identities[id]; ok {
		if info.Name != "" {
			p.Name = info.Name
		}
		p.AvatarURL = info.AvatarURL
	}
	return p
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
