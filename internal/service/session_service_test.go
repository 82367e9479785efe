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

type memorySessions struct {
	items   map[string]models.SessionDetail
	created []*models.Session
	updated []*models.Session
	filters []models.SessionFilter
}

func newMemorySessions(items ...models.SessionDetail) *memorySessions {
	m := &memorySessions{items: map[string]models.SessionDetail{}}
	for _, item := range items {
		m.items[item.ID] = item
	}
	return m
}

func (m *memorySessions) List(_ context.Context, filter models.SessionFilter) ([]models.SessionDetail, int, error) {
	items, _ := m.ListAll(context.Background(), filter)
	return items, len(items), nil
}

func (m *memorySessions) ListAll(_ context.Context, filter models.SessionFilter) ([]models.SessionDetail, error) {
	m.filters = append(m.filters, filter)
	out := make([]models.SessionDetail, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, nil
}

func (m *memorySessions) FindByID(_ context.Context, id string) (*models.SessionDetail, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (m *memorySessions) Create(_ context.Context, session *models.Session) error {
	session.ID = "new-session"
	m.created = append(m.created, session)
	return nil
}

func (m *memorySessions) Update(_ context.Context, session *models.Session) error {
	m.updated = append(m.updated, session)
	return nil
}

func (m *memorySessions) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type fakeModules map[string]models.Module

func (f fakeModules) FindByID(_ context.Context, id string) (*models.Module, error) {
	item, ok := f[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

type fakeTeachers map[string]models.Teacher

func (f fakeTeachers) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	item, ok := f[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func bookedSession() models.SessionDetail {
	return models.SessionDetail{
		Session: models.Session{
			ID: "s1", Room: "Salle A", Status: models.SessionStatusRunning,
			StartDate: day(2024, time.January, 8), EndDate: day(2024, time.June, 28),
			Schedule: models.Schedule{{Day: "lundi", StartTime: "08:00", EndTime: "10:00"}},
		},
		ModuleTitle: "Comptabilité générale",
	}
}

func newSessionFixture(items ...models.SessionDetail) (*SessionService, *memorySessions) {
	svc, repo, _ := newSessionFixtureWithCache(items...)
	return svc, repo
}

func newSessionFixtureWithCache(items ...models.SessionDetail) (*SessionService, *memorySessions, *countingInvalidator) {
	repo := newMemorySessions(items...)
	cache := &countingInvalidator{}
	svc := NewSessionService(repo, fakeModules{"m1": {ID: "m1", Title: "Bureautique"}}, fakeTeachers{"t1": {ID: "t1"}}, cache, nil, nil)
	svc.now = func() time.Time { return day(2024, time.March, 15) }
	return svc, repo, cache
}

func sessionRequest(start, end string) SessionRequest {
	return SessionRequest{
		ModuleID:  "m1",
		Room:      "salle a",
		StartDate: day(2024, time.February, 1),
		EndDate:   day(2024, time.July, 31),
		Capacity:  20,
		Schedule:  []models.ScheduleSlot{{Day: "lundi", StartTime: start, EndTime: end}},
	}
}

func TestStatusAt(t *testing.T) {
	start, end := day(2024, time.March, 1), day(2024, time.March, 31)
	assert.Equal(t, models.SessionStatusUpcoming, StatusAt(start, end, day(2024, time.February, 29)))
	assert.Equal(t, models.SessionStatusRunning, StatusAt(start, end, day(2024, time.March, 31).Add(23*time.Hour)))
	assert.Equal(t, models.SessionStatusFinished, StatusAt(start, end, day(2024, time.April, 1)))
}

func TestFindRoomConflict(t *testing.T) {
	booked := bookedSession()
	candidate := models.Session{
		Room: "SALLE A", StartDate: day(2024, time.March, 1), EndDate: day(2024, time.March, 31),
		Schedule: models.Schedule{{Day: "lundi", StartTime: "09:00", EndTime: "11:00"}},
	}

	conflict := FindRoomConflict(candidate, []models.SessionDetail{booked}, "")
	require.NotNil(t, conflict)
	assert.Equal(t, "s1", conflict.ID)

	assert.Nil(t, FindRoomConflict(candidate, []models.SessionDetail{booked}, "s1"), "a session does not conflict with itself")

	touching := candidate
	touching.Schedule = models.Schedule{{Day: "lundi", StartTime: "10:00", EndTime: "12:00"}}
	assert.Nil(t, FindRoomConflict(touching, []models.SessionDetail{booked}, ""))

	later := candidate
	later.StartDate, later.EndDate = day(2024, time.July, 1), day(2024, time.July, 31)
	assert.Nil(t, FindRoomConflict(later, []models.SessionDetail{booked}, ""))

	finished := booked
	finished.Status = models.SessionStatusFinished
	assert.Nil(t, FindRoomConflict(candidate, []models.SessionDetail{finished}, ""))

	otherRoom := booked
	otherRoom.Room = "Salle B"
	assert.Nil(t, FindRoomConflict(candidate, []models.SessionDetail{otherRoom}, ""))
}

func TestBuildTimetableGroupsByWeekday(t *testing.T) {
	first := bookedSession()
	second := bookedSession()
	second.ID = "s2"
	second.Schedule = models.Schedule{
		{Day: "lundi", StartTime: "07:00", EndTime: "08:00"},
		{Day: "mercredi", StartTime: "14:00", EndTime: "16:00"},
	}

	days := BuildTimetable([]models.SessionDetail{first, second})
	require.Len(t, days, 7)
	assert.Equal(t, "lundi", days[0].Day)
	require.Len(t, days[0].Slots, 2)
	assert.Equal(t, "s2", days[0].Slots[0].SessionID)
	assert.Equal(t, "s1", days[0].Slots[1].SessionID)
	assert.Empty(t, days[1].Slots)
	assert.NotNil(t, days[1].Slots)
	require.Len(t, days[2].Slots, 1)
	assert.Equal(t, "dimanche", days[6].Day)
}

func TestSessionCreateDerivesStatus(t *testing.T) {
	svc, repo := newSessionFixture()

	session, err := svc.Create(context.Background(), sessionRequest("08:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusRunning, session.Status)
	assert.Equal(t, "salle a", session.Room)
	require.Len(t, repo.created, 1)
	require.Len(t, repo.filters, 1)
	assert.Equal(t, "salle a", repo.filters[0].Room)
}

func TestSessionCreateRejectsRoomConflict(t *testing.T) {
	svc, repo := newSessionFixture(bookedSession())

	_, err := svc.Create(context.Background(), sessionRequest("09:30", "11:00"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrRoomConflict))
	assert.Empty(t, repo.created)
}

func TestSessionUpdateIgnoresItself(t *testing.T) {
	svc, repo := newSessionFixture(bookedSession())

	req := sessionRequest("08:00", "09:30")
	req.Room = "Salle A"
	session, err := svc.Update(context.Background(), "s1", req)
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	require.Len(t, repo.updated, 1)
}

func TestSessionValidation(t *testing.T) {
	svc, _ := newSessionFixture()
	ctx := context.Background()

	backwards := sessionRequest("08:00", "10:00")
	backwards.EndDate = day(2024, time.January, 1)
	_, err := svc.Create(ctx, backwards)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	inverted := sessionRequest("10:00", "08:00")
	_, err = svc.Create(ctx, inverted)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	overlapping := sessionRequest("08:00", "10:00")
	overlapping.Schedule = append(overlapping.Schedule, models.ScheduleSlot{Day: "lundi", StartTime: "09:00", EndTime: "11:00"})
	_, err = svc.Create(ctx, overlapping)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	badDay := sessionRequest("08:00", "10:00")
	badDay.Schedule[0].Day = "monday"
	_, err = svc.Create(ctx, badDay)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	unknownModule := sessionRequest("08:00", "10:00")
	unknownModule.ModuleID = "missing"
	_, err = svc.Create(ctx, unknownModule)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	unknownTeacher := sessionRequest("08:00", "10:00")
	unknownTeacher.TeacherID = "missing"
	_, err = svc.Create(ctx, unknownTeacher)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestSessionDeleteMissing(t *testing.T) {
	svc, _ := newSessionFixture()
	err := svc.Delete(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestSessionAcceptsSingleDigitHours(t *testing.T) {
	svc, repo := newSessionFixture()

	session, err := svc.Create(context.Background(), sessionRequest("9:00", "10:30"))
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "09:00", session.Schedule[0].StartTime)
	assert.Equal(t, "10:30", session.Schedule[0].EndTime)
}

func TestSessionSingleDigitHourStillConflicts(t *testing.T) {
	svc, repo := newSessionFixture(bookedSession())

	_, err := svc.Create(context.Background(), sessionRequest("9:00", "9:30"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrRoomConflict))
	assert.Empty(t, repo.created)
}

func TestScheduleSlotOverlapsComparesClockTime(t *testing.T) {
	morning := models.ScheduleSlot{Day: "lundi", StartTime: "08:00", EndTime: "10:00"}
	assert.True(t, morning.Overlaps(models.ScheduleSlot{Day: "lundi", StartTime: "9:00", EndTime: "9:30"}))
	assert.False(t, morning.Overlaps(models.ScheduleSlot{Day: "lundi", StartTime: "10:00", EndTime: "11:00"}))
	assert.False(t, morning.Overlaps(models.ScheduleSlot{Day: "mardi", StartTime: "9:00", EndTime: "9:30"}))
}

func TestSessionMutationsInvalidateAggregates(t *testing.T) {
	svc, _, cache := newSessionFixtureWithCache(bookedSession())
	ctx := context.Background()

	_, err := svc.Create(ctx, sessionRequest("14:00", "16:00"))
	require.NoError(t, err)
	req := sessionRequest("08:00", "09:30")
	req.Room = "Salle A"
	_, err = svc.Update(ctx, "s1", req)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "s1"))

	assert.Equal(t, 3, cache.calls)
}
