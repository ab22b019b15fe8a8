package db

import (
	"context"

	"github.com/formdesk/backend/internal/model"
	"github.com/jackc/pgx/v5"
)

func (db *Postgres) EnsureFormSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS form_submissions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS form_attachments (
			id BIGSERIAL PRIMARY KEY,
			submission_id BIGINT NOT NULL REFERENCES form_submissions(id) ON DELETE CASCADE,
			file_name TEXT NOT NULL,
			object_key TEXT NOT NULL UNIQUE,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			content_type TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS form_submissions_user_id_idx ON form_submissions(user_id)`,
		`CREATE INDEX IF NOT EXISTS form_attachments_submission_id_idx ON form_attachments(submission_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// CreateSubmission inserts the submission and its attachment rows in
// one transaction.
func (db *Postgres) CreateSubmission(ctx context.Context, sub *model.FormSubmission, attachments []model.FormAttachment) (*model.FormSubmission, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var created model.FormSubmission
	err = tx.QueryRow(ctx, `
		INSERT INTO form_submissions (user_id, title, category, body, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, user_id, title, category, body, created_at
	`, sub.UserID, sub.Title, sub.Category, sub.Body).Scan(
		&created.ID,
		&created.UserID,
		&created.Title,
		&created.Category,
		&created.Body,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, att := range attachments {
		if _, err = tx.Exec(ctx, `
			INSERT INTO form_attachments (submission_id, file_name, object_key, size_bytes, content_type, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`, created.ID, att.FileName, att.ObjectKey, att.SizeBytes, att.ContentType); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &created, nil
}

func (db *Postgres) GetSubmission(ctx context.Context, id int64) (*model.FormSubmission, error) {
	query := `
		SELECT id, user_id, title, category, body, created_at
		FROM form_submissions
		WHERE id = $1
	`
	var sub model.FormSubmission
	err := db.Pool.QueryRow(ctx, query, id).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Title,
		&sub.Category,
		&sub.Body,
		&sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (db *Postgres) ListSubmissionsByUser(ctx context.Context, userID int64) ([]model.FormSubmission, error) {
	query := `
		SELECT id, user_id, title, category, body, created_at
		FROM form_submissions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

func (db *Postgres) ListSubmissions(ctx context.Context) ([]model.FormSubmission, error) {
	query := `
		SELECT id, user_id, title, category, body, created_at
		FROM form_submissions
		ORDER BY created_at DESC
	`
	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

func (db *Postgres) GetAttachments(ctx context.Context, submissionID int64) ([]model.FormAttachment, error) {
	query := `
		SELECT id, submission_id, file_name, object_key, size_bytes, content_type, created_at
		FROM form_attachments
		WHERE submission_id = $1
		ORDER BY id
	`
	rows, err := db.Pool.Query(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []model.FormAttachment
	for rows.Next() {
		var att model.FormAttachment
		if err := rows.Scan(
			&att.ID,
			&att.SubmissionID,
			&att.FileName,
			&att.ObjectKey,
			&att.SizeBytes,
			&att.ContentType,
			&att.CreatedAt,
		); err != nil {
			return nil, err
		}
		attachments = append(attachments, att)
	}
	return attachments, rows.Err()
}

func scanSubmissions(rows pgx.Rows) ([]model.FormSubmission, error) {
	var subs []model.FormSubmission
	for rows.Next() {
		var sub model.FormSubmission
		if err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.Title,
			&sub.Category,
			&sub.Body,
			&sub.CreatedAt,
		); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
