package service

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/formdesk/backend/internal/client"
	"github.com/formdesk/backend/internal/db"
	"github.com/formdesk/backend/internal/model"
)

var ErrNotFound = errors.New("not found")

// formRepo - 제출/첨부 저장용 DB 인터페이스
type formRepo interface {
	CreateSubmission(ctx context.Context, sub *model.FormSubmission, attachments []model.FormAttachment) (*model.FormSubmission, error)
	GetSubmission(ctx context.Context, id int64) (*model.FormSubmission, error)
	ListSubmissionsByUser(ctx context.Context, userID int64) ([]model.FormSubmission, error)
	ListSubmissions(ctx context.Context) ([]model.FormSubmission, error)
	GetAttachments(ctx context.Context, submissionID int64) ([]model.FormAttachment, error)
	GetUserByLoginID(ctx context.Context, loginID string) (*model.User, error)
}

// attachmentStore abstracts the object storage used for uploads.
type attachmentStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// Upload is one incoming multipart file.
type Upload struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	Body        io.Reader
}

type FormService struct {
	repo  formRepo
	store attachmentStore
}

func NewFormService(repo formRepo, store attachmentStore) *FormService {
	return &FormService{repo: repo, store: store}
}

// Submit stores the uploads in object storage, then persists the
// submission with its attachment records in one transaction.
func (s *FormService) Submit(ctx context.Context, actor *model.AuthUser, title, category, body string, uploads []Upload) (*model.FormSubmission, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	if title == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.repo.GetUserByLoginID(ctx, actor.LoginID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	attachments := make([]model.FormAttachment, 0, len(uploads))
	for _, up := range uploads {
		if up.FileName == "" {
			return nil, ErrInvalidInput
		}

		key := client.NewStorageKey()
		if err := s.store.Put(ctx, key, up.ContentType, up.Body); err != nil {
			return nil, err
		}

		attachments = append(attachments, model.FormAttachment{
			FileName:    up.FileName,
			ObjectKey:   key,
			SizeBytes:   up.SizeBytes,
			ContentType: up.ContentType,
		})
	}

	sub := &model.FormSubmission{
		UserID:   user.ID,
		Title:    title,
		Category: category,
		Body:     body,
	}
	created, err := s.repo.CreateSubmission(ctx, sub, attachments)
	if err != nil {
		return nil, err
	}

	log.Printf("[Form] Submission created (id=%d, user=%s, attachments=%d)", created.ID, actor.LoginID, len(attachments))
	return created, nil
}

// Get returns a submission with presigned download links. Owners see
// their own submissions; admins see everything.
func (s *FormService) Get(ctx context.Context, actor *model.AuthUser, id int64) (*model.FormDetail, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}

	sub, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if actor.Role != model.RoleAdmin {
		user, err := s.repo.GetUserByLoginID(ctx, actor.LoginID)
		if err != nil {
			if db.IsNoRows(err) {
				return nil, ErrUnauthorized
			}
			return nil, err
		}
		if sub.UserID != user.ID {
			return nil, ErrForbidden
		}
	}

	attachments, err := s.repo.GetAttachments(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &model.FormDetail{
		FormSubmission: *sub,
		Attachments:    make([]model.AttachmentLink, 0, len(attachments)),
	}
	for _, att := range attachments {
		link := model.AttachmentLink{FormAttachment: att}
		url, err := s.store.PresignGet(ctx, att.ObjectKey)
		if err != nil {
			// 다운로드 링크 생성 실패는 목록 자체를 막지 않음
			log.Printf("[Form] Failed to presign attachment (id=%d): %v", att.ID, err)
		} else {
			link.DownloadURL = url
		}
		detail.Attachments = append(detail.Attachments, link)
	}
	return detail, nil
}

// List returns the caller's submissions; admins get all of them.
func (s *FormService) List(ctx context.Context, actor *model.AuthUser) ([]model.FormSubmission, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}

	if actor.Role == model.RoleAdmin {
		return s.repo.ListSubmissions(ctx)
	}

	user, err := s.repo.GetUserByLoginID(ctx, actor.LoginID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return s.repo.ListSubmissionsByUser(ctx, user.ID)
}
