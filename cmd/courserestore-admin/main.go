package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/campuskit/courserestore/config"
	"github.com/campuskit/courserestore/internal/bootstrap"
	"github.com/campuskit/courserestore/internal/domain/model"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger(false)

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"restore": {
			name:        "restore",
			description: "Restore a backup archive into a course and wait for completion",
			run:         runRestore,
		},
		"backup": {
			name:        "backup",
			description: "Produce a backup archive for a course",
			run:         runBackup,
		},
		"jobs": {
			name:        "jobs",
			description: "List restore job records",
			run:         runListJobs,
		},
		"clear-failed": {
			name:        "clear-failed",
			description: "Delete all failed restore job records",
			run:         runClearFailed,
		},
		"progress": {
			name:        "progress",
			description: "Show engine progress for a restore id",
			run:         runProgress,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: courserestore-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, c := range commands() {
		if err := writef(os.Stdout, "  %-16s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if err := writef(out, "%s", prompt); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer closeDB(cmdCtx.Logger, db)

	cmdCtx.Logger.Info("running database migrations")

	if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
		return fmt.Errorf("run migrations: %w", migrateErr)
	}

	cmdCtx.Logger.Info("migrations completed successfully")
	return nil
}

type restoreOptions struct {
	Archive    string
	CourseID   int64
	Shortname  string
	IDNumber   string
	CategoryID int64
	Fullname   string
	Force      bool
}

func parseRestoreFlags(args []string) (restoreOptions, error) {
	var opts restoreOptions
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.StringVar(&opts.Archive, "archive", "", "backup archive handle (required)")
	fs.Int64Var(&opts.CourseID, "course-id", 0, "restore into this course id")
	fs.StringVar(&opts.Shortname, "shortname", "", "restore into the course with this shortname")
	fs.StringVar(&opts.IDNumber, "idnumber", "", "restore into the course with this idnumber")
	fs.Int64Var(&opts.CategoryID, "category-id", 0, "create a new course in this category")
	fs.StringVar(&opts.Fullname, "fullname", "", "fullname for a newly created course")
	fs.BoolVar(&opts.Force, "force", false, "skip the overwrite confirmation for existing courses")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Archive == "" {
		return opts, errors.New("-archive is required")
	}
	return opts, nil
}

func runRestore(cmdCtx *commandContext, args []string) error {
	opts, err := parseRestoreFlags(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := model.RestoreRequest{
		ArchiveHandle: opts.Archive,
		Selector: model.CourseSelector{
			CourseID:   opts.CourseID,
			Shortname:  opts.Shortname,
			IDNumber:   opts.IDNumber,
			CategoryID: opts.CategoryID,
		},
		CourseFullname: opts.Fullname,
	}

	// Restoring into an existing course deletes its current content.
	if req.Selector.HasCourse() && !opts.Force {
		ok, confirmErr := confirm(os.Stdin, os.Stdout,
			"Restoring will delete the existing content of the target course. Continue? [y/N] ")
		if confirmErr != nil {
			return confirmErr
		}
		if !ok {
			return writef(os.Stdout, "aborted\n")
		}
	}

	return withServices(ctx, cmdCtx, func(services bootstrap.ServiceContainer) error {
		courseID, restoreErr := services.Restores.RunSync(ctx, req)
		if restoreErr != nil {
			return fmt.Errorf("restore: %w", restoreErr)
		}

		return writef(os.Stdout, "restored into course %d\n", courseID)
	})
}

func runBackup(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	courseID := fs.Int64("course-id", 0, "back up the course with this id")
	shortname := fs.String("shortname", "", "back up the course with this shortname")
	idnumber := fs.String("idnumber", "", "back up the course with this idnumber")
	noUsers := fs.Bool("no-users", false, "exclude user data from the backup")
	dest := fs.String("dest", "", "also download the archive to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withServices(ctx, cmdCtx, func(services bootstrap.ServiceContainer) error {
		course, err := services.Backups.ResolveCourse(ctx, model.CourseSelector{
			CourseID:  *courseID,
			Shortname: *shortname,
			IDNumber:  *idnumber,
		})
		if err != nil {
			return fmt.Errorf("resolve course: %w", err)
		}

		result, backupErr := services.Backups.CreateBackup(ctx, model.BackupRequest{
			CourseID:     course.ID,
			IncludeUsers: !*noUsers,
		})
		if backupErr != nil {
			return fmt.Errorf("backup: %w", backupErr)
		}

		if *dest != "" {
			if dlErr := downloadArchive(ctx, services, result.Handle, *dest); dlErr != nil {
				return fmt.Errorf("download archive: %w", dlErr)
			}
		}

		return writef(os.Stdout, "backup stored as %s (%s, %d bytes)\n", result.Handle, result.Filename, result.Size)
	})
}

func downloadArchive(ctx context.Context, services bootstrap.ServiceContainer, handle, dest string) error {
	src, err := services.Backups.OpenArchive(ctx, handle)
	if err != nil {
		return err
	}
	defer src.Close() //nolint:errcheck // read-only stream

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close() //nolint:errcheck // the copy error wins
		return err
	}
	return out.Close()
}

func runListJobs(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	pendingOnly := fs.Bool("pending", false, "show only jobs that have not executed yet")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withServices(ctx, cmdCtx, func(services bootstrap.ServiceContainer) error {
		if *pendingOnly {
			return listPendingJobs(ctx, services)
		}
		jobs, listErr := services.Status.ListJobs(ctx)
		if listErr != nil {
			return fmt.Errorf("list jobs: %w", listErr)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		if err := writef(tw, "ID\tCOURSE\tSHORTNAME\tCREATED\tEXECUTED\tFAILED\tREASON\n"); err != nil {
			return err
		}
		for _, job := range jobs {
			executed := "-"
			if job.TimeExecuted != nil {
				executed = job.TimeExecuted.Format(time.RFC3339)
			}
			reason := ""
			if job.FailureReason != nil {
				reason = *job.FailureReason
			}
			if err := writef(tw, "%d\t%d\t%s\t%s\t%s\t%t\t%s\n",
				job.ID, job.CourseID, job.CourseShortname,
				job.TimeCreated.Format(time.RFC3339), executed, job.Failed, reason,
			); err != nil {
				return err
			}
		}
		return tw.Flush()
	})
}

func listPendingJobs(ctx context.Context, services bootstrap.ServiceContainer) error {
	jobs, err := services.Status.PendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(tw, "ID\tCOURSE\tRESTORE ID\tCREATED\n"); err != nil {
		return err
	}
	for _, job := range jobs {
		restoreID := "-"
		if job.RestoreID != nil {
			restoreID = *job.RestoreID
		}
		if err := writef(tw, "%d\t%d\t%s\t%s\n",
			job.ID, job.CourseID, restoreID, job.TimeCreated.Format(time.RFC3339),
		); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runClearFailed(cmdCtx *commandContext, _ []string) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withServices(ctx, cmdCtx, func(services bootstrap.ServiceContainer) error {
		deleted, clearErr := services.Status.ClearFailed(ctx)
		if clearErr != nil {
			return fmt.Errorf("clear failed jobs: %w", clearErr)
		}
		return writef(os.Stdout, "deleted %d failed restore jobs\n", deleted)
	})
}

func runProgress(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("progress", flag.ContinueOnError)
	restoreID := fs.String("restore-id", "", "engine restore id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *restoreID == "" {
		return errors.New("-restore-id is required")
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withServices(ctx, cmdCtx, func(services bootstrap.ServiceContainer) error {
		progress, progressErr := services.Status.Progress(ctx, *restoreID)
		if progressErr != nil {
			return fmt.Errorf("progress: %w", progressErr)
		}
		return writef(os.Stdout, "restore %s: %s (%.1f%%)\n", progress.RestoreID, progress.Status, progress.Percent)
	})
}

// withServices connects the database, builds the service container and runs fn.
// Redis is skipped; admin commands never touch the progress cache.
func withServices(ctx context.Context, cmdCtx *commandContext, fn func(bootstrap.ServiceContainer) error) error {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer closeDB(cmdCtx.Logger, db)

	services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config: &cmdCtx.Config,
		DB:     db,
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}

	return fn(services)
}

func closeDB(logger *slog.Logger, db *sql.DB) {
	if closeErr := db.Close(); closeErr != nil {
		logger.Warn("db close failed", "error", closeErr)
	}
}
