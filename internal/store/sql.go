package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"

	"github.com/Proton-105/users-backend/internal/database"
	"github.com/Proton-105/users-backend/internal/domain"
)

const userTable = `"user"`

var userColumns = []string{"id", "email", "first_name", "last_name", "avatar"}

const returningUser = "RETURNING id, email, first_name, last_name, avatar"

type rowScanner interface {
	Scan(dest ...any) error
}

// SQLStore keeps users in the "user" table of a PostgreSQL or SQLite database.
type SQLStore struct {
	db      *sql.DB
	builder squirrel.StatementBuilderType
	log     *slog.Logger
}

// NewSQLStore builds a store for db using the bind variables of driver.
func NewSQLStore(db *sql.DB, driver string, log *slog.Logger) *SQLStore {
	if log == nil {
		log = slog.Default()
	}

	return &SQLStore{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(database.Placeholder(driver)),
		log:     log.With(slog.String("store", "sql")),
	}
}

func (s *SQLStore) Name() string {
	return "sql"
}

func scanUser(row rowScanner) (domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Avatar)
	return user, err
}

func (s *SQLStore) Create(ctx context.Context, in domain.UserCreate) (domain.User, error) {
	return s.insert(ctx, s.db, in)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) insert(ctx context.Context, q queryRower, in domain.UserCreate) (domain.User, error) {
	query, args, err := s.builder.Insert(userTable).
		Columns("email", "first_name", "last_name", "avatar").
		Values(in.Email, in.FirstName, in.LastName, in.Avatar).
		Suffix(returningUser).
		ToSql()
	if err != nil {
		return domain.User{}, fmt.Errorf("build insert user query: %w", err)
	}

	user, err := scanUser(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		s.log.Error("failed to insert user", slog.String("email", in.Email), slog.Any("error", err))
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (domain.User, error) {
	query, args, err := s.builder.Select(userColumns...).
		From(userTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.User{}, fmt.Errorf("build select user query: %w", err)
	}

	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user %d: %w", id, err)
	}
	return user, nil
}

func (s *SQLStore) List(ctx context.Context) ([]domain.User, error) {
	query, args, err := s.builder.Select(userColumns...).
		From(userTable).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users query: %w", err)
	}

	return s.queryUsers(ctx, query, args...)
}

// ListPage returns limit users starting at offset plus the total number of users.
func (s *SQLStore) ListPage(ctx context.Context, offset, limit int) ([]domain.User, int, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	if offset < 0 || offset >= total || limit < 1 {
		return []domain.User{}, total, nil
	}

	query, args, err := s.builder.Select(userColumns...).
		From(userTable).
		OrderBy("id ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build page users query: %w", err)
	}

	users, err := s.queryUsers(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *SQLStore) queryUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *SQLStore) Update(ctx context.Context, id int64, patch domain.UserPatch) (domain.User, error) {
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}

	fields := patch.Fields()
	set := make(map[string]any, len(fields))
	for column, value := range fields {
		set[column] = value
	}

	query, args, err := s.builder.Update(userTable).
		SetMap(set).
		Where(squirrel.Eq{"id": id}).
		Suffix(returningUser).
		ToSql()
	if err != nil {
		return domain.User{}, fmt.Errorf("build update user query: %w", err)
	}

	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("update user %d: %w", id, err)
	}
	return user, nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	query, args, err := s.builder.Delete(userTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user %d rows affected: %w", id, err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	query, args, err := s.builder.Delete(userTable).ToSql()
	if err != nil {
		return fmt.Errorf("build clear users query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	return nil
}

// Replace deletes every user and inserts users inside one transaction.
func (s *SQLStore) Replace(ctx context.Context, users []domain.UserCreate) ([]domain.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace users: %w", err)
	}

	created, err := s.replaceTx(ctx, tx, users)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Error("rollback error", slog.Any("error", rbErr))
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace users: %w", err)
	}
	return created, nil
}

func (s *SQLStore) replaceTx(ctx context.Context, tx *sql.Tx, users []domain.UserCreate) ([]domain.User, error) {
	query, args, err := s.builder.Delete(userTable).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build clear users query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("clear users: %w", err)
	}

	created := make([]domain.User, 0, len(users))
	for _, in := range users {
		user, err := s.insert(ctx, tx, in)
		if err != nil {
			return nil, err
		}
		created = append(created, user)
	}
	return created, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	query, args, err := s.builder.Select("COUNT(*)").From(userTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count users query: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
