package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mtlprog/tasktrail/internal/database"
	"github.com/mtlprog/tasktrail/internal/domain"
	"github.com/mtlprog/tasktrail/internal/repository"
)

var base = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

func closedTask(id, owner, name, description string, closedAfter time.Duration) *domain.Task {
	task, err := domain.NewTask(id, owner, name, description, base.AddDate(0, 1, 0), base)
	if err != nil {
		panic(err)
	}
	if err := task.Close(base.Add(closedAfter)); err != nil {
		panic(err)
	}
	return task
}

// ArchiveTaskRepositoryTestSuite runs against an in-memory SQLite database.
type ArchiveTaskRepositoryTestSuite struct {
	suite.Suite
	archive *database.Archive
	repo    *repository.ArchiveTaskRepository
}

func (s *ArchiveTaskRepositoryTestSuite) SetupTest() {
	archive, err := database.OpenArchive(":memory:", &repository.ArchivedTask{})
	s.Require().NoError(err, "failed to open archive database")
	s.archive = archive
	s.repo = repository.NewArchiveTaskRepository(archive.DB())
}

func (s *ArchiveTaskRepositoryTestSuite) TearDownTest() {
	s.archive.Close()
}

func (s *ArchiveTaskRepositoryTestSuite) TestAdd_RoundTrip() {
	ctx := context.Background()
	task := closedTask("t1", "u1", "Buy milk", "2 liters", time.Hour)

	s.Require().NoError(s.repo.Add(ctx, task))

	got, err := s.repo.GetByID(ctx, "t1")
	s.Require().NoError(err)
	s.Equal(task, got)
}

func (s *ArchiveTaskRepositoryTestSuite) TestAdd_IsUpsert() {
	ctx := context.Background()
	task := closedTask("t1", "u1", "first", "", time.Hour)
	s.Require().NoError(s.repo.Add(ctx, task))

	task.Name = "second"
	s.Require().NoError(s.repo.Add(ctx, task))

	got, err := s.repo.GetByID(ctx, "t1")
	s.Require().NoError(err)
	s.Equal("second", got.Name)

	page, err := s.repo.Search(ctx, "u1", domain.SearchQuery{Page: 1, PageSize: 20})
	s.Require().NoError(err)
	s.EqualValues(1, page.TotalCount)
}

func (s *ArchiveTaskRepositoryTestSuite) TestGetOwned_ForeignOwnerIsNotFound() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Add(ctx, closedTask("t1", "u1", "mine", "", time.Hour)))

	_, err := s.repo.GetOwned(ctx, "u2", "t1")
	s.ErrorIs(err, domain.ErrTaskNotFound)

	got, err := s.repo.GetOwned(ctx, "u1", "t1")
	s.Require().NoError(err)
	s.Equal("mine", got.Name)
}

func (s *ArchiveTaskRepositoryTestSuite) TestGetByID_Missing() {
	_, err := s.repo.GetByID(context.Background(), "missing")
	s.ErrorIs(err, domain.ErrTaskNotFound)
}

func (s *ArchiveTaskRepositoryTestSuite) TestSearch_CaseInsensitiveOrderedByClosedAt() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Add(ctx, closedTask("t1", "u1", "Buy MILK", "", 1*time.Hour)))
	s.Require().NoError(s.repo.Add(ctx, closedTask("t2", "u1", "Bake", "needs Milk", 3*time.Hour)))
	s.Require().NoError(s.repo.Add(ctx, closedTask("t3", "u1", "Walk dog", "", 2*time.Hour)))
	s.Require().NoError(s.repo.Add(ctx, closedTask("t4", "u2", "milk", "", 4*time.Hour)))

	page, err := s.repo.Search(ctx, "u1", domain.SearchQuery{Text: "milk", Page: 1, PageSize: 20})
	s.Require().NoError(err)
	s.EqualValues(2, page.TotalCount)
	s.Require().Len(page.Items, 2)
	s.Equal("t2", page.Items[0].ID)
	s.Equal("t1", page.Items[1].ID)
}

func (s *ArchiveTaskRepositoryTestSuite) TestSearch_CaseInsensitiveBeyondASCII() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Add(ctx, closedTask("t1", "u1", "Купить МОЛОКО", "", 1*time.Hour)))
	s.Require().NoError(s.repo.Add(ctx, closedTask("t2", "u1", "Bake", "GRÜNER Tee", 2*time.Hour)))

	page, err := s.repo.Search(ctx, "u1", domain.SearchQuery{Text: "молоко", Page: 1, PageSize: 20})
	s.Require().NoError(err)
	s.EqualValues(1, page.TotalCount)
	s.Require().Len(page.Items, 1)
	s.Equal("t1", page.Items[0].ID)
	s.Equal("Купить МОЛОКО", page.Items[0].Name)

	page, err = s.repo.Search(ctx, "u1", domain.SearchQuery{Text: "grüner", Page: 1, PageSize: 20})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal("t2", page.Items[0].ID)
}

func (s *ArchiveTaskRepositoryTestSuite) TestSearch_Pagination() {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		task := closedTask(fmt.Sprintf("t%d", i), "u1", fmt.Sprintf("task %d", i), "", time.Duration(i)*time.Minute)
		s.Require().NoError(s.repo.Add(ctx, task))
	}

	page, err := s.repo.Search(ctx, "u1", domain.SearchQuery{Page: 2, PageSize: 2})
	s.Require().NoError(err)
	s.EqualValues(5, page.TotalCount)
	s.Equal(2, page.Page)
	s.Equal(2, page.PageSize)
	s.Require().Len(page.Items, 2)
	s.Equal("t2", page.Items[0].ID)
	s.Equal("t1", page.Items[1].ID)

	last, err := s.repo.Search(ctx, "u1", domain.SearchQuery{Page: 4, PageSize: 2})
	s.Require().NoError(err)
	s.Empty(last.Items)
	s.EqualValues(5, last.TotalCount)
}

func (s *ArchiveTaskRepositoryTestSuite) TestSearch_WildcardsMatchLiterally() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Add(ctx, closedTask("t1", "u1", "100% done", "", time.Hour)))
	s.Require().NoError(s.repo.Add(ctx, closedTask("t2", "u1", "1000 done", "", time.Hour)))

	page, err := s.repo.Search(ctx, "u1", domain.SearchQuery{Text: "0%", Page: 1, PageSize: 20})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal("t1", page.Items[0].ID)
}

func (s *ArchiveTaskRepositoryTestSuite) TestDelete_MissingIsNoop() {
	s.NoError(s.repo.Delete(context.Background(), "missing"))
}

func (s *ArchiveTaskRepositoryTestSuite) TestPurgeAll_ScopedToOwner() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Add(ctx, closedTask("a", "u1", "x", "", time.Hour)))
	s.Require().NoError(s.repo.Add(ctx, closedTask("b", "u1", "y", "", time.Hour)))
	s.Require().NoError(s.repo.Add(ctx, closedTask("c", "u2", "z", "", time.Hour)))

	removed, err := s.repo.PurgeAll(ctx, "u1")
	s.Require().NoError(err)
	s.EqualValues(2, removed)

	_, err = s.repo.GetByID(ctx, "c")
	s.NoError(err)
}

func TestArchiveTaskRepositorySuite(t *testing.T) {
	suite.Run(t, new(ArchiveTaskRepositoryTestSuite))
}
