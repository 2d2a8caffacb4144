package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"bookshelf/book-service/internal/app/books/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// CategoryRepositoryTestSuite тестовый suite для PostgreSQL репозитория категорий
type CategoryRepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	mock  sqlmock.Sqlmock
	repo  CategoryRepository
	sqlDB *sql.DB
}

func TestCategoryRepositorySuite(t *testing.T) {
	suite.Run(t, new(CategoryRepositoryTestSuite))
}

func (s *CategoryRepositoryTestSuite) SetupTest() {
	var err error
	s.sqlDB, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	dialector := postgres.New(postgres.Config{
		Conn:       s.sqlDB,
		DriverName: "postgres",
	})

	s.db, err = gorm.Open(dialector, &gorm.Config{})
	require.NoError(s.T(), err)

	s.repo = NewCategoryRepository(s.db)
}

func (s *CategoryRepositoryTestSuite) TearDownTest() {
	s.sqlDB.Close()
}

// ===================== Create Tests =====================

func (s *CategoryRepositoryTestSuite) TestCreate_Success() {
	ctx := context.Background()
	category := &entity.Category{Name: "Fantasy"}

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "categories" ("name") VALUES ($1) RETURNING "id"`)).
		WithArgs("Fantasy").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	s.mock.ExpectCommit()

	// Act
	err := s.repo.Create(ctx, category)

	// Assert
	s.NoError(err)
	s.Equal(int64(7), category.ID)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestCreate_DuplicateName() {
	ctx := context.Background()
	category := &entity.Category{Name: "Fantasy"}

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "categories"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	s.mock.ExpectRollback()

	// Act
	err := s.repo.Create(ctx, category)

	// Assert
	s.ErrorIs(err, ErrDuplicateKey)
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== Get Tests =====================

func (s *CategoryRepositoryTestSuite) TestGetByID_Success() {
	ctx := context.Background()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" WHERE id = $1`)).
		WithArgs(int64(3), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "Sci-Fi"))

	// Act
	category, err := s.repo.GetByID(ctx, 3)

	// Assert
	s.NoError(err)
	s.Require().NotNil(category)
	s.Equal(int64(3), category.ID)
	s.Equal("Sci-Fi", category.Name)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestGetByID_NotFound() {
	ctx := context.Background()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" WHERE id = $1`)).
		WithArgs(int64(99), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	// Act
	category, err := s.repo.GetByID(ctx, 99)

	// Assert
	s.ErrorIs(err, ErrNotFound)
	s.Nil(category)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestGetByName_ExactMatch() {
	ctx := context.Background()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" WHERE name = $1`)).
		WithArgs("Fantasy", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Fantasy"))

	// Act
	category, err := s.repo.GetByName(ctx, "Fantasy")

	// Assert
	s.NoError(err)
	s.Equal(int64(1), category.ID)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestGetByName_DBError() {
	ctx := context.Background()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" WHERE name = $1`)).
		WillReturnError(sql.ErrConnDone)

	// Act
	category, err := s.repo.GetByName(ctx, "Fantasy")

	// Assert
	s.Error(err)
	s.NotErrorIs(err, ErrNotFound)
	s.Nil(category)
	s.Contains(err.Error(), "failed to get category by name")
}

func (s *CategoryRepositoryTestSuite) TestGetByIDs_ReturnsOnlyExisting() {
	ctx := context.Background()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" WHERE id IN ($1,$2,$3) ORDER BY id ASC`)).
		WithArgs(int64(1), int64(2), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "Fantasy").
			AddRow(2, "Sci-Fi"))

	// Act
	categories, err := s.repo.GetByIDs(ctx, []int64{1, 2, 42})

	// Assert
	s.NoError(err)
	s.Len(categories, 2)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestGetByIDs_EmptyInputSkipsQuery() {
	// Act
	categories, err := s.repo.GetByIDs(context.Background(), nil)

	// Assert
	s.NoError(err)
	s.NotNil(categories)
	s.Empty(categories)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestGetAll_OrderedByID() {
	ctx := context.Background()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" ORDER BY id ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "Fantasy").
			AddRow(2, "Classics"))

	// Act
	categories, err := s.repo.GetAll(ctx)

	// Assert
	s.NoError(err)
	s.Require().Len(categories, 2)
	s.Equal("Fantasy", categories[0].Name)
	s.Equal("Classics", categories[1].Name)
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== Update Tests =====================

func (s *CategoryRepositoryTestSuite) TestUpdate_Success() {
	ctx := context.Background()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "categories" SET "name"=$1 WHERE id = $2`)).
		WithArgs("Science Fiction", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	// Act
	err := s.repo.Update(ctx, &entity.Category{ID: 2, Name: "Science Fiction"})

	// Assert
	s.NoError(err)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestUpdate_NotFound() {
	ctx := context.Background()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "categories" SET "name"=$1 WHERE id = $2`)).
		WithArgs("Poetry", int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	// Act
	err := s.repo.Update(ctx, &entity.Category{ID: 404, Name: "Poetry"})

	// Assert
	s.ErrorIs(err, ErrNotFound)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestUpdate_DuplicateName() {
	ctx := context.Background()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "categories"`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	s.mock.ExpectRollback()

	// Act
	err := s.repo.Update(ctx, &entity.Category{ID: 2, Name: "Fantasy"})

	// Assert
	s.ErrorIs(err, ErrDuplicateKey)
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== Delete Tests =====================

func (s *CategoryRepositoryTestSuite) TestDelete_RemovesLinksThenCategory() {
	ctx := context.Background()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "book_categories" WHERE category_id = $1`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	s.mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "categories" WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	// Act
	err := s.repo.Delete(ctx, 5)

	// Assert
	s.NoError(err)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestDelete_NotFoundRollsBack() {
	ctx := context.Background()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "book_categories" WHERE category_id = $1`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "categories" WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectRollback()

	// Act
	err := s.repo.Delete(ctx, 5)

	// Assert
	s.ErrorIs(err, ErrNotFound)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestCount() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "categories"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	// Act
	count, err := s.repo.Count(context.Background())

	// Assert
	s.NoError(err)
	s.Equal(int64(4), count)
	s.NoError(s.mock.ExpectationsWereMet())
}
