// Package mocks provides mock implementations for testing the course restore services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the
// repository and adapter interfaces in internal/core. The mocks are generated using
// go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockRestoreJobRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=restore_job_repository_mock.go github.com/campuskit/courserestore/internal/core RestoreJobRepository

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=course_repository_mock.go github.com/campuskit/courserestore/internal/core CourseRepository

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=task_repository_mock.go github.com/campuskit/courserestore/internal/core TaskRepository

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=completion_bus_mock.go github.com/campuskit/courserestore/internal/core CompletionBus

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=restore_engine_mock.go github.com/campuskit/courserestore/internal/core RestoreEngine

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=archive_store_mock.go github.com/campuskit/courserestore/internal/core ArchiveStore

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=progress_cache_mock.go github.com/campuskit/courserestore/internal/core ProgressCache
