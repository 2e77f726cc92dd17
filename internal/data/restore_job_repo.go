package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campuskit/courserestore/internal/domain/model"
)

// RestoreJobRepo provides database operations for restore job records.
type RestoreJobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// RestoreJobRepoConfig holds configuration options for RestoreJobRepo.
type RestoreJobRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// NewRestoreJobRepo creates a new RestoreJobRepo instance.
func NewRestoreJobRepo(db *sql.DB, cfg RestoreJobRepoConfig) *RestoreJobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &RestoreJobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const restoreJobColumns = `
  id,
  course_id,
  backup_dir,
  restore_id,
  callback_url,
  callback_payload,
  time_created,
  time_executed,
  failure_reason,
  failed
`

type restoreJobScanner interface {
	Scan(dest ...any) error
}

func scanRestoreJob(scanner restoreJobScanner) (*model.RestoreJob, error) {
	var (
		job             model.RestoreJob
		restoreID       sql.NullString
		callbackURL     sql.NullString
		callbackPayload sql.NullString
		timeExecuted    sql.NullTime
		failureReason   sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.CourseID,
		&job.BackupDir,
		&restoreID,
		&callbackURL,
		&callbackPayload,
		&job.TimeCreated,
		&timeExecuted,
		&failureReason,
		&job.Failed,
	); err != nil {
		return nil, err
	}
	job.RestoreID = nullableString(restoreID)
	job.CallbackURL = nullableString(callbackURL)
	job.CallbackPayload = nullableString(callbackPayload)
	job.TimeExecuted = nullableTime(timeExecuted)
	job.FailureReason = nullableString(failureReason)
	return &job, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// Create inserts a new restore job record.
func (r *RestoreJobRepo) Create(ctx context.Context, req model.CreateRestoreJobRequest) (*model.RestoreJob, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO restore_jobs (course_id, backup_dir, restore_id, callback_url, callback_payload, time_created)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+restoreJobColumns,
		req.CourseID,
		req.BackupDir,
		req.RestoreID,
		req.CallbackURL,
		req.CallbackPayload,
		r.timeProvider.Now().UTC(),
	)

	job, err := scanRestoreJob(row)
	if err != nil {
		return nil, fmt.Errorf("insert restore job: %w", err)
	}
	return job, nil
}

// GetByCourse returns the newest non-failed restore job for the given course.
func (r *RestoreJobRepo) GetByCourse(ctx context.Context, courseID int64) (*model.RestoreJob, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+restoreJobColumns+`
		FROM restore_jobs
		WHERE course_id = $1 AND failed = FALSE
		ORDER BY time_created DESC
		LIMIT 1
	`, courseID)

	job, err := scanRestoreJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get restore job by course: %w", err)
	}
	return job, nil
}

// Update rewrites the mutable fields of an existing restore job.
func (r *RestoreJobRepo) Update(ctx context.Context, job *model.RestoreJob) error {
	if job == nil {
		return errors.New("restore job is required")
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE restore_jobs
		SET restore_id = $2,
		    time_executed = $3,
		    failure_reason = $4,
		    failed = $5
		WHERE id = $1
	`, job.ID, job.RestoreID, job.TimeExecuted, job.FailureReason, job.Failed)
	if err != nil {
		return fmt.Errorf("update restore job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrJobNotFound
	}
	return nil
}

// Delete removes a restore job record by id.
func (r *RestoreJobRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM restore_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete restore job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrJobNotFound
	}
	return nil
}

// ListAll returns all restore job records, newest first, with course shortnames.
func (r *RestoreJobRepo) ListAll(ctx context.Context) ([]model.RestoreJobListing, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT
		  j.id,
		  j.course_id,
		  j.backup_dir,
		  j.restore_id,
		  j.callback_url,
		  j.callback_payload,
		  j.time_created,
		  j.time_executed,
		  j.failure_reason,
		  j.failed,
		  COALESCE(c.shortname, '') AS course_shortname
		FROM restore_jobs j
		LEFT JOIN courses c ON c.id = j.course_id
		ORDER BY j.time_created DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list restore jobs: %w", err)
	}
	defer rows.Close()

	var listings []model.RestoreJobListing
	for rows.Next() {
		var (
			listing         model.RestoreJobListing
			restoreID       sql.NullString
			callbackURL     sql.NullString
			callbackPayload sql.NullString
			timeExecuted    sql.NullTime
			failureReason   sql.NullString
		)
		if scanErr := rows.Scan(
			&listing.ID,
			&listing.CourseID,
			&listing.BackupDir,
			&restoreID,
			&callbackURL,
			&callbackPayload,
			&listing.TimeCreated,
			&timeExecuted,
			&failureReason,
			&listing.Failed,
			&listing.CourseShortname,
		); scanErr != nil {
			return nil, fmt.Errorf("scan restore job listing: %w", scanErr)
		}
		listing.RestoreID = nullableString(restoreID)
		listing.CallbackURL = nullableString(callbackURL)
		listing.CallbackPayload = nullableString(callbackPayload)
		listing.TimeExecuted = nullableTime(timeExecuted)
		listing.FailureReason = nullableString(failureReason)
		listings = append(listings, listing)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate restore job listings: %w", rowsErr)
	}
	return listings, nil
}

// ListPending returns restore jobs that have not executed yet.
func (r *RestoreJobRepo) ListPending(ctx context.Context) ([]model.RestoreJob, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+restoreJobColumns+`
		FROM restore_jobs
		WHERE time_executed IS NULL AND failed = FALSE
		ORDER BY time_created ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending restore jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.RestoreJob
	for rows.Next() {
		job, scanErr := scanRestoreJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan restore job: %w", scanErr)
		}
		jobs = append(jobs, *job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate restore jobs: %w", rowsErr)
	}
	return jobs, nil
}

// ClearFailed deletes all failed restore job records.
func (r *RestoreJobRepo) ClearFailed(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM restore_jobs WHERE failed = TRUE`)
	if err != nil {
		return 0, fmt.Errorf("clear failed restore jobs: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if r.logger != nil && rowsAffected > 0 {
		r.logger.InfoContext(ctx, "cleared failed restore jobs", "count", rowsAffected)
	}
	return rowsAffected, nil
}
