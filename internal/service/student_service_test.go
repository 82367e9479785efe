package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type memoryStudents struct {
	items       map[string]models.StudentDetail
	emailTaken  bool
	photoUpdate error
	photos      map[string]string
}

func (m *memoryStudents) List(context.Context, models.StudentFilter) ([]models.StudentDetail, int, error) {
	out := make([]models.StudentDetail, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, len(out), nil
}

func (m *memoryStudents) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (m *memoryStudents) ExistsByEmail(context.Context, string, string) (bool, error) {
	return m.emailTaken, nil
}

func (m *memoryStudents) Create(_ context.Context, student *models.Student) error {
	student.ID = "st-new"
	m.items[student.ID] = models.StudentDetail{Student: *student}
	return nil
}

func (m *memoryStudents) Update(_ context.Context, student *models.Student) error {
	m.items[student.ID] = models.StudentDetail{Student: *student}
	return nil
}

func (m *memoryStudents) UpdatePhoto(_ context.Context, id, url string) error {
	if m.photoUpdate != nil {
		return m.photoUpdate
	}
	m.photos[id] = url
	return nil
}

func (m *memoryStudents) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func newStudentFixture() (*StudentService, *memoryStudents, *fakeImages, *countingInvalidator) {
	oldPhoto := "/uploads/students/st1-1.png"
	repo := &memoryStudents{
		items: map[string]models.StudentDetail{
			"st1": {Student: models.Student{ID: "st1", FirstName: "Awa", LastName: "Koné", Status: models.StudentStatusActive, PhotoURL: &oldPhoto}},
		},
		photos: map[string]string{},
	}
	images := &fakeImages{}
	cache := &countingInvalidator{}
	svc := NewStudentService(repo, &fakeSequences{values: map[string]int{"student": 6}}, images, cache, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC) }
	return svc, repo, images, cache
}

func TestStudentCreateAssignsRegistrationNumber(t *testing.T) {
	svc, _, _, cache := newStudentFixture()

	student, err := svc.Create(context.Background(), StudentRequest{FirstName: "Yao", LastName: "Kouassi", Gender: "M", Email: "yao@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "ASM-2024-0007", student.RegistrationNumber)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	require.NotNil(t, student.Email)
	assert.Nil(t, student.Address)
	assert.Equal(t, 1, cache.calls)
}

func TestStudentCreateRejections(t *testing.T) {
	svc, repo, _, _ := newStudentFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, StudentRequest{FirstName: "Yao"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, StudentRequest{FirstName: "Yao", LastName: "K", Gender: "X"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	repo.emailTaken = true
	_, err = svc.Create(ctx, StudentRequest{FirstName: "Yao", LastName: "K", Email: "taken@example.com"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestStudentUpdateKeepsStatusWhenOmitted(t *testing.T) {
	svc, _, _, _ := newStudentFixture()

	student, err := svc.Update(context.Background(), "st1", StudentRequest{FirstName: "Awa", LastName: "Traoré"})
	require.NoError(t, err)
	assert.Equal(t, "Traoré", student.LastName)
	assert.Equal(t, models.StudentStatusActive, student.Status)

	_, err = svc.Update(context.Background(), "missing", StudentRequest{FirstName: "A", LastName: "B"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentUploadPhotoReplacesPrevious(t *testing.T) {
	svc, repo, images, _ := newStudentFixture()

	url, err := svc.UploadPhoto(context.Background(), "st1", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/students/st1.png", url)
	assert.Equal(t, url, repo.photos["st1"])
	assert.Equal(t, []string{"/uploads/students/st1-1.png"}, images.removed)
}

func TestStudentUploadPhotoCleansUpOnFailure(t *testing.T) {
	svc, repo, images, _ := newStudentFixture()
	repo.photoUpdate = errors.New("db down")

	_, err := svc.UploadPhoto(context.Background(), "st1", []byte("png"))
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Equal(t, []string{"/uploads/students/st1.png"}, images.removed)
}
