package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campuskit/courserestore/internal/domain/model"
)

// ErrCourseExists is returned when a course shortname is already taken.
var ErrCourseExists = errors.New("course shortname already exists")

// CourseRepo provides read and create operations on course records.
type CourseRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewCourseRepo creates a new CourseRepo instance.
func NewCourseRepo(db *sql.DB, tp TimeProvider) *CourseRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &CourseRepo{DB: db, timeProvider: tp}
}

const courseColumns = `id, category_id, shortname, fullname, idnumber, created_at`

func (r *CourseRepo) getBy(ctx context.Context, where string, arg any) (*model.Course, error) {
	var course model.Course
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE `+where, arg,
	).Scan(
		&course.ID,
		&course.CategoryID,
		&course.Shortname,
		&course.Fullname,
		&course.IDNumber,
		&course.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &course, nil
}

// GetByID returns the course with the given id.
func (r *CourseRepo) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	return r.getBy(ctx, `id = $1`, id)
}

// GetByShortname returns the course with the given shortname.
func (r *CourseRepo) GetByShortname(ctx context.Context, shortname string) (*model.Course, error) {
	return r.getBy(ctx, `shortname = $1`, shortname)
}

// GetByIDNumber returns the course with the given idnumber.
func (r *CourseRepo) GetByIDNumber(ctx context.Context, idnumber string) (*model.Course, error) {
	return r.getBy(ctx, `idnumber = $1 AND idnumber <> ''`, idnumber)
}

// CategoryExists reports whether a course category with the given id exists.
func (r *CourseRepo) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM course_categories WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return exists, nil
}

// CreateCourse inserts a placeholder course for a restore to fill.
func (r *CourseRepo) CreateCourse(ctx context.Context, req model.CreateCourseRequest) (*model.Course, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var course model.Course
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO courses (category_id, shortname, fullname, idnumber, created_at)
		VALUES ($1, $2, $3, '', $4)
		RETURNING `+courseColumns,
		req.CategoryID, req.Shortname, req.Fullname, r.timeProvider.Now().UTC(),
	).Scan(
		&course.ID,
		&course.CategoryID,
		&course.Shortname,
		&course.Fullname,
		&course.IDNumber,
		&course.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrCourseExists
		}
		return nil, fmt.Errorf("create course: %w", err)
	}
	return &course, nil
}
