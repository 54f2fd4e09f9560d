package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mtlprog/tasktrail/internal/domain"
	"github.com/mtlprog/tasktrail/internal/notify"
	"github.com/mtlprog/tasktrail/internal/notify/notifytest"
	"github.com/mtlprog/tasktrail/internal/repository/memory"
	"github.com/mtlprog/tasktrail/internal/service"
)

// TaskServiceTestSuite is the test suite for TaskService.
type TaskServiceTestSuite struct {
	suite.Suite
	active      *memory.ActiveStore
	publisher   *recordingPublisher
	sink        *notifytest.Recorder
	taskService *service.TaskService
}

// SetupTest runs before each test.
func (s *TaskServiceTestSuite) SetupTest() {
	s.active = memory.NewActiveStore()
	s.publisher = &recordingPublisher{}
	s.sink = &notifytest.Recorder{}
	s.taskService = service.NewTaskService(s.active, s.publisher, s.sink, &sequentialIDs{}, newSteppingClock())
}

func (s *TaskServiceTestSuite) create(p domain.Principal, name string) *domain.Task {
	task, err := s.taskService.Create(context.Background(), p, service.CreateTaskParams{Name: name, DueDate: due})
	s.Require().NoError(err)
	return task
}

func (s *TaskServiceTestSuite) TestCreate_Success() {
	task := s.create(u1, "Buy milk")

	s.Equal("task-1", task.ID)
	s.Equal("u1", task.OwnerID)
	s.Equal(domain.TaskStatusOpen, task.Status)
	s.Equal(due, task.DueDate)

	stored, err := s.active.GetByID(context.Background(), task.ID)
	s.Require().NoError(err)
	s.Equal(task, stored)
	s.True(s.sink.Has(notify.KindTaskUpdated, task.ID))
}

func (s *TaskServiceTestSuite) TestCreate_ValidationError() {
	_, err := s.taskService.Create(context.Background(), u1, service.CreateTaskParams{Name: strings.Repeat("n", 201)})

	s.ErrorIs(err, domain.ErrValidation)
	s.Equal(0, s.active.Len())
}

func (s *TaskServiceTestSuite) TestCreate_RequiresPrincipal() {
	_, err := s.taskService.Create(context.Background(), domain.Principal{}, service.CreateTaskParams{Name: "x"})
	s.ErrorIs(err, domain.ErrUnauthenticated)
}

func (s *TaskServiceTestSuite) TestGet_ForeignOwnerIsNotFound() {
	task := s.create(u1, "mine")

	_, err := s.taskService.Get(context.Background(), u2, task.ID)
	s.ErrorIs(err, domain.ErrTaskNotFound)

	got, err := s.taskService.Get(context.Background(), u1, task.ID)
	s.Require().NoError(err)
	s.Equal(task.ID, got.ID)
}

func (s *TaskServiceTestSuite) TestGetAll_ScopedAndFiltered() {
	first := s.create(u1, "first")
	second := s.create(u1, "second")
	s.create(u2, "other")

	_, err := s.taskService.Close(context.Background(), u1, first.ID)
	s.Require().NoError(err)

	all, err := s.taskService.GetAll(context.Background(), u1, domain.ListFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(second.ID, all[0].ID)

	open, err := s.taskService.GetAll(context.Background(), u1, domain.ListFilter{Status: domain.TaskStatusOpen})
	s.Require().NoError(err)
	s.Require().Len(open, 1)
	s.Equal(second.ID, open[0].ID)

	_, err = s.taskService.GetAll(context.Background(), u1, domain.ListFilter{Status: "DONE"})
	s.ErrorIs(err, domain.ErrInvalidStatus)
}

func (s *TaskServiceTestSuite) TestUpdate_ContentOnly() {
	task := s.create(u1, "old")
	closed, err := s.taskService.Close(context.Background(), u1, task.ID)
	s.Require().NoError(err)

	updated, err := s.taskService.Update(context.Background(), u1, task.ID, service.UpdateTaskParams{
		Name:        "new",
		Description: "details",
		DueDate:     due.AddDate(0, 0, 7),
	})
	s.Require().NoError(err)

	s.Equal("new", updated.Name)
	s.Equal("details", updated.Description)
	s.Equal(domain.TaskStatusClosed, updated.Status)
	s.Equal(closed.ClosedAt, updated.ClosedAt)
}

func (s *TaskServiceTestSuite) TestUpdate_ForeignOwnerIsNotFound() {
	task := s.create(u1, "mine")

	_, err := s.taskService.Update(context.Background(), u2, task.ID, service.UpdateTaskParams{Name: "stolen"})
	s.ErrorIs(err, domain.ErrTaskNotFound)

	stored, err := s.active.GetByID(context.Background(), task.ID)
	s.Require().NoError(err)
	s.Equal("mine", stored.Name)
}

func (s *TaskServiceTestSuite) TestClose_PublishesAfterPersisting() {
	task := s.create(u1, "Buy milk")

	closed, err := s.taskService.Close(context.Background(), u1, task.ID)
	s.Require().NoError(err)
	s.Equal(domain.TaskStatusClosed, closed.Status)
	s.Require().NotNil(closed.ClosedAt)

	stored, err := s.active.GetByID(context.Background(), task.ID)
	s.Require().NoError(err)
	s.Equal(domain.TaskStatusClosed, stored.Status)

	evs := s.publisher.all()
	s.Require().Len(evs, 1)
	s.Equal(domain.EventKindClosed, evs[0].Kind)
	s.Equal(task.ID, evs[0].TaskID)
	s.Equal(*closed.ClosedAt, evs[0].OccurredAt)
}

func (s *TaskServiceTestSuite) TestClose_ForeignOwnerIsNotFound() {
	task := s.create(u1, "mine")

	_, err := s.taskService.Close(context.Background(), u2, task.ID)
	s.ErrorIs(err, domain.ErrTaskNotFound)
	s.Empty(s.publisher.all())
}

func (s *TaskServiceTestSuite) TestClose_Twice() {
	task := s.create(u1, "mine")
	_, err := s.taskService.Close(context.Background(), u1, task.ID)
	s.Require().NoError(err)

	_, err = s.taskService.Close(context.Background(), u1, task.ID)

	var terr *domain.InvalidTransitionError
	s.Require().True(errors.As(err, &terr))
	s.Equal(domain.TaskStatusClosed, terr.From)
	s.Equal(domain.TaskStatusClosed, terr.To)
	s.Len(s.publisher.all(), 1)
}

func (s *TaskServiceTestSuite) TestClose_PublishFailureKeepsClose() {
	svc := service.NewTaskService(s.active, failingPublisher{}, s.sink, &sequentialIDs{}, newSteppingClock())
	task, err := svc.Create(context.Background(), u1, service.CreateTaskParams{Name: "x", DueDate: due})
	s.Require().NoError(err)

	closed, err := svc.Close(context.Background(), u1, task.ID)
	s.Require().NoError(err)
	s.Equal(domain.TaskStatusClosed, closed.Status)

	stored, err := s.active.GetByID(context.Background(), task.ID)
	s.Require().NoError(err)
	s.Equal(domain.TaskStatusClosed, stored.Status)
}

func (s *TaskServiceTestSuite) TestReopen_FromOpenIsConflict() {
	task := s.create(u1, "mine")

	_, err := s.taskService.Reopen(context.Background(), u1, task.ID)

	var terr *domain.InvalidTransitionError
	s.Require().True(errors.As(err, &terr))
	s.Equal(domain.TaskStatusOpen, terr.From)
	s.Equal(domain.TaskStatusReopened, terr.To)
}

func (s *TaskServiceTestSuite) TestReopen_Synchronous() {
	task := s.create(u1, "mine")
	_, err := s.taskService.Close(context.Background(), u1, task.ID)
	s.Require().NoError(err)

	reopened, err := s.taskService.Reopen(context.Background(), u1, task.ID)
	s.Require().NoError(err)
	s.Equal(domain.TaskStatusReopened, reopened.Status)
	s.NotNil(reopened.ReopenedAt)
	s.NotNil(reopened.ClosedAt)

	stored, err := s.active.GetByID(context.Background(), task.ID)
	s.Require().NoError(err)
	s.Equal(domain.TaskStatusReopened, stored.Status)

	// Only the close produced an event.
	s.Len(s.publisher.all(), 1)
}

func TestTaskServiceSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
