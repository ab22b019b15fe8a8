package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/formdesk/backend/internal/model"
)

type fakeFormRepo struct {
	users       map[string]*model.User
	submissions map[int64]*model.FormSubmission
	attachments map[int64][]model.FormAttachment
	nextID      int64
}

func newFakeFormRepo() *fakeFormRepo {
	return &fakeFormRepo{
		users:       make(map[string]*model.User),
		submissions: make(map[int64]*model.FormSubmission),
		attachments: make(map[int64][]model.FormAttachment),
	}
}

func (f *fakeFormRepo) addUser(loginID string, role model.Role) *model.User {
	user := &model.User{ID: int64(len(f.users) + 1), LoginID: loginID, Role: role}
	f.users[loginID] = user
	return user
}

func (f *fakeFormRepo) CreateSubmission(ctx context.Context, sub *model.FormSubmission, attachments []model.FormAttachment) (*model.FormSubmission, error) {
	f.nextID++
	created := *sub
	created.ID = f.nextID
	created.CreatedAt = time.Now()
	f.submissions[created.ID] = &created
	for i, att := range attachments {
		att.ID = int64(i + 1)
		att.SubmissionID = created.ID
		f.attachments[created.ID] = append(f.attachments[created.ID], att)
	}
	return &created, nil
}

func (f *fakeFormRepo) GetSubmission(ctx context.Context, id int64) (*model.FormSubmission, error) {
	sub, ok := f.submissions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return sub, nil
}

func (f *fakeFormRepo) ListSubmissionsByUser(ctx context.Context, userID int64) ([]model.FormSubmission, error) {
	var subs []model.FormSubmission
	for _, sub := range f.submissions {
		if sub.UserID == userID {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (f *fakeFormRepo) ListSubmissions(ctx context.Context) ([]model.FormSubmission, error) {
	var subs []model.FormSubmission
	for _, sub := range f.submissions {
		subs = append(subs, *sub)
	}
	return subs, nil
}

func (f *fakeFormRepo) GetAttachments(ctx context.Context, submissionID int64) ([]model.FormAttachment, error) {
	return f.attachments[submissionID], nil
}

func (f *fakeFormRepo) GetUserByLoginID(ctx context.Context, loginID string) (*model.User, error) {
	user, ok := f.users[loginID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

// recordingStore remembers which object keys were written.
type recordingStore struct {
	objects map[string]bool
}

func (s *recordingStore) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	s.objects[key] = true
	return nil
}

func (s *recordingStore) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://storage.local/" + key, nil
}

func TestFormSubmit(t *testing.T) {
	repo := newFakeFormRepo()
	repo.addUser("alice", model.RoleUser)
	store := &recordingStore{objects: make(map[string]bool)}
	svc := NewFormService(repo, store)

	actor := &model.AuthUser{LoginID: "alice", Role: model.RoleUser}
	uploads := []Upload{
		{FileName: "report.pdf", ContentType: "application/pdf", SizeBytes: 4, Body: strings.NewReader("data")},
		{FileName: "photo.png", ContentType: "image/png", SizeBytes: 3, Body: strings.NewReader("img")},
	}

	created, err := svc.Submit(context.Background(), actor, "Inspection", "machines", "all good", uploads)
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected submission id")
	}
	if len(store.objects) != 2 {
		t.Fatalf("expected 2 stored objects, got %d", len(store.objects))
	}
	if len(repo.attachments[created.ID]) != 2 {
		t.Fatalf("expected 2 attachment rows, got %d", len(repo.attachments[created.ID]))
	}
}

func TestFormSubmitValidation(t *testing.T) {
	repo := newFakeFormRepo()
	repo.addUser("alice", model.RoleUser)
	svc := NewFormService(repo, &recordingStore{objects: make(map[string]bool)})
	actor := &model.AuthUser{LoginID: "alice", Role: model.RoleUser}

	if _, err := svc.Submit(context.Background(), actor, "", "", "", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty title, got %v", err)
	}
	if _, err := svc.Submit(context.Background(), nil, "t", "", "", nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for nil actor, got %v", err)
	}
}

func TestFormSubmitWithoutFiles(t *testing.T) {
	repo := newFakeFormRepo()
	repo.addUser("alice", model.RoleUser)
	svc := NewFormService(repo, &recordingStore{objects: make(map[string]bool)})
	actor := &model.AuthUser{LoginID: "alice", Role: model.RoleUser}

	created, err := svc.Submit(context.Background(), actor, "No attachments", "misc", "", nil)
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if len(repo.attachments[created.ID]) != 0 {
		t.Fatal("expected no attachments")
	}
}

func TestFormGetAccessControl(t *testing.T) {
	repo := newFakeFormRepo()
	repo.addUser("owner", model.RoleUser)
	repo.addUser("other", model.RoleUser)
	svc := NewFormService(repo, &recordingStore{objects: make(map[string]bool)})
	ctx := context.Background()

	created, err := svc.Submit(ctx, &model.AuthUser{LoginID: "owner", Role: model.RoleUser}, "Mine", "c", "", nil)
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	if _, err := svc.Get(ctx, &model.AuthUser{LoginID: "other", Role: model.RoleUser}, created.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Get(ctx, &model.AuthUser{LoginID: "owner", Role: model.RoleUser}, created.ID); err != nil {
		t.Fatalf("owner Get error: %v", err)
	}
	if _, err := svc.Get(ctx, &model.AuthUser{LoginID: "root", Role: model.RoleAdmin}, created.ID); err != nil {
		t.Fatalf("admin Get error: %v", err)
	}
	if _, err := svc.Get(ctx, &model.AuthUser{LoginID: "owner", Role: model.RoleUser}, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFormGetAttachmentLinks(t *testing.T) {
	repo := newFakeFormRepo()
	repo.addUser("alice", model.RoleUser)
	store := &recordingStore{objects: make(map[string]bool)}
	svc := NewFormService(repo, store)
	ctx := context.Background()
	actor := &model.AuthUser{LoginID: "alice", Role: model.RoleUser}

	created, err := svc.Submit(ctx, actor, "With file", "c", "", []Upload{
		{FileName: "a.txt", ContentType: "text/plain", SizeBytes: 1, Body: strings.NewReader("x")},
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	detail, err := svc.Get(ctx, actor, created.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if len(detail.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(detail.Attachments))
	}
	if detail.Attachments[0].DownloadURL == "" {
		t.Fatal("expected presigned download URL")
	}
}

func TestFormList(t *testing.T) {
	repo := newFakeFormRepo()
	repo.addUser("alice", model.RoleUser)
	repo.addUser("bob", model.RoleUser)
	svc := NewFormService(repo, &recordingStore{objects: make(map[string]bool)})
	ctx := context.Background()

	if _, err := svc.Submit(ctx, &model.AuthUser{LoginID: "alice", Role: model.RoleUser}, "A", "c", "", nil); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if _, err := svc.Submit(ctx, &model.AuthUser{LoginID: "bob", Role: model.RoleUser}, "B", "c", "", nil); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	mine, err := svc.List(ctx, &model.AuthUser{LoginID: "alice", Role: model.RoleUser})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 own submission, got %d", len(mine))
	}

	all, err := svc.List(ctx, &model.AuthUser{LoginID: "root", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("admin List error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 submissions for admin, got %d", len(all))
	}
}
