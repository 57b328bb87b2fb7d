package persistence

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cabflow/cabflow/modules/changes/domain/changerequest"
	"github.com/cabflow/cabflow/pkg/composables"
)

const selectChangeRequestFields = `
	id,
	title,
	description,
	reason,
	impact,
	additional_info,
	project_id,
	requester_id,
	required_approvers,
	issue_ids,
	change_window_start,
	change_window_end,
	validation_status,
	approval_status,
	phase,
	version,
	created_at,
	updated_at
`

// PgChangeRequestRepository stores change requests in Postgres. Optimistic
// concurrency rides on the version column: every CompareAndSwap is a single
// UPDATE guarded by the expected version, so two racing writers can never
// both win.
type PgChangeRequestRepository struct{}

func NewPgChangeRequestRepository() changerequest.Repository {
	return &PgChangeRequestRepository{}
}

func (r *PgChangeRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}

	row := tx.QueryRow(ctx, `SELECT`+selectChangeRequestFields+`FROM change_requests WHERE id = $1`, pgUUID(id))
	cr, err := scanChangeRequest(row)
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}

	comments, err := r.commentsFor(ctx, id)
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}
	return withComments(cr, comments), nil
}

func (r *PgChangeRequestRepository) Create(ctx context.Context, cr changerequest.ChangeRequest) (changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}

	row := tx.QueryRow(ctx, `
INSERT INTO change_requests (
	id,
	title,
	description,
	reason,
	impact,
	additional_info,
	project_id,
	requester_id,
	required_approvers,
	issue_ids,
	change_window_start,
	change_window_end,
	validation_status,
	approval_status,
	phase,
	version,
	created_at,
	updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,1,$16,$16)
RETURNING`+selectChangeRequestFields,
		pgUUID(cr.ID()),
		cr.Title(),
		cr.Description(),
		cr.Reason(),
		cr.Impact(),
		cr.AdditionalInfo(),
		cr.ProjectID(),
		cr.RequesterID(),
		textArray(cr.RequiredApprovers()),
		textArray(cr.IssueIDs()),
		cr.ChangeWindowStart(),
		cr.ChangeWindowEnd(),
		string(cr.ValidationStatus()),
		string(cr.ApprovalStatus()),
		string(cr.Phase()),
		cr.CreatedAt(),
	)
	return scanChangeRequest(row)
}

func (r *PgChangeRequestRepository) CompareAndSwap(ctx context.Context, id uuid.UUID, expectedVersion int64, cr changerequest.ChangeRequest) (changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}

	row := tx.QueryRow(ctx, `
UPDATE change_requests
SET
	validation_status = $3,
	approval_status = $4,
	phase = $5,
	version = version + 1,
	updated_at = $6
WHERE id = $1 AND version = $2
RETURNING`+selectChangeRequestFields,
		pgUUID(id),
		expectedVersion,
		string(cr.ValidationStatus()),
		string(cr.ApprovalStatus()),
		string(cr.Phase()),
		cr.UpdatedAt(),
	)
	updated, err := scanChangeRequest(row)
	if errors.Is(err, changerequest.ErrNotFound) {
		// The guard misses both when the record is gone and when the
		// version moved on. Disambiguate with a second read.
		var exists bool
		if existsErr := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM change_requests WHERE id = $1)`, pgUUID(id),
		).Scan(&exists); existsErr != nil {
			return changerequest.ChangeRequest{}, existsErr
		}
		if exists {
			return changerequest.ChangeRequest{}, changerequest.ErrVersionConflict
		}
		return changerequest.ChangeRequest{}, changerequest.ErrNotFound
	}
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}
	return withComments(updated, cr.Comments()), nil
}

func (r *PgChangeRequestRepository) AppendComment(ctx context.Context, id uuid.UUID, comment changerequest.Comment) (changerequest.Comment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return changerequest.Comment{}, err
	}

	// Single statement so the append and the parent touch cannot be torn
	// apart even outside an explicit transaction.
	tag, err := tx.Exec(ctx, `
WITH touched AS (
	UPDATE change_requests SET updated_at = $5 WHERE id = $2 RETURNING id
)
INSERT INTO change_request_comments (id, change_request_id, author_id, body, created_at)
SELECT $1, id, $3, $4, $5 FROM touched
`, pgUUID(comment.ID()), pgUUID(id), comment.AuthorID(), comment.Body(), comment.CreatedAt())
	if err != nil {
		return changerequest.Comment{}, err
	}
	if tag.RowsAffected() == 0 {
		return changerequest.Comment{}, changerequest.ErrNotFound
	}
	return comment, nil
}

func (r *PgChangeRequestRepository) List(ctx context.Context, params *changerequest.FindParams) ([]changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &changerequest.FindParams{}
	}

	where := []string{"1=1"}
	args := []any{}
	if params.ProjectID != "" {
		args = append(args, params.ProjectID)
		where = append(where, "project_id = $"+strconv.Itoa(len(args)))
	}
	if params.Phase != "" {
		args = append(args, string(params.Phase))
		where = append(where, "phase = $"+strconv.Itoa(len(args)))
	}
	if params.ParticipantID != "" {
		args = append(args, params.ParticipantID)
		n := strconv.Itoa(len(args))
		where = append(where, "(requester_id = $"+n+" OR $"+n+" = ANY(required_approvers))")
	}

	q := `SELECT` + selectChangeRequestFields + `FROM change_requests WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at, id`
	if params.Limit > 0 {
		args = append(args, params.Limit)
		q += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if params.Offset > 0 {
		args = append(args, params.Offset)
		q += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// List reads skip the comment log; callers fetch a single record when
	// they need the discussion.
	out := make([]changerequest.ChangeRequest, 0)
	for rows.Next() {
		cr, err := scanChangeRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

func (r *PgChangeRequestRepository) commentsFor(ctx context.Context, id uuid.UUID) ([]changerequest.Comment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
SELECT id, author_id, body, created_at
FROM change_request_comments
WHERE change_request_id = $1
ORDER BY created_at, id
`, pgUUID(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []changerequest.Comment
	for rows.Next() {
		var (
			commentID uuid.UUID
			authorID  string
			body      string
			createdAt time.Time
		)
		if err := rows.Scan(&commentID, &authorID, &body, &createdAt); err != nil {
			return nil, err
		}
		comments = append(comments, changerequest.HydrateComment(commentID, authorID, body, createdAt))
	}
	return comments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChangeRequest(row rowScanner) (changerequest.ChangeRequest, error) {
	var (
		id                uuid.UUID
		title             string
		description       string
		reason            string
		impact            string
		additionalInfo    string
		projectID         string
		requesterID       string
		requiredApprovers []string
		issueIDs          []string
		windowStart       *time.Time
		windowEnd         *time.Time
		validationStatus  string
		approvalStatus    string
		phase             string
		version           int64
		createdAt         time.Time
		updatedAt         time.Time
	)
	err := row.Scan(
		&id,
		&title,
		&description,
		&reason,
		&impact,
		&additionalInfo,
		&projectID,
		&requesterID,
		&requiredApprovers,
		&issueIDs,
		&windowStart,
		&windowEnd,
		&validationStatus,
		&approvalStatus,
		&phase,
		&version,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return changerequest.ChangeRequest{}, changerequest.ErrNotFound
	}
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}
	return changerequest.Hydrate(
		id,
		title, description, reason, impact, additionalInfo,
		projectID, requesterID,
		requiredApprovers, issueIDs,
		windowStart, windowEnd,
		changerequest.Status(validationStatus), changerequest.Status(approvalStatus),
		changerequest.Phase(phase),
		nil,
		version,
		createdAt, updatedAt,
	), nil
}

func withComments(cr changerequest.ChangeRequest, comments []changerequest.Comment) changerequest.ChangeRequest {
	return changerequest.Hydrate(
		cr.ID(),
		cr.Title(), cr.Description(), cr.Reason(), cr.Impact(), cr.AdditionalInfo(),
		cr.ProjectID(), cr.RequesterID(),
		cr.RequiredApprovers(), cr.IssueIDs(),
		cr.ChangeWindowStart(), cr.ChangeWindowEnd(),
		cr.ValidationStatus(), cr.ApprovalStatus(),
		cr.Phase(),
		comments,
		cr.Version(),
		cr.CreatedAt(), cr.UpdatedAt(),
	)
}

// textArray never hands pgx a nil slice so empty lists round-trip as '{}'
// instead of NULL.
func textArray(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
