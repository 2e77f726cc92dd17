package config

import "strings"

// ArchiveBackend selects where backup archives live.
type ArchiveBackend string

const (
	// ArchiveBackendLocal stores archives on the local filesystem.
	ArchiveBackendLocal ArchiveBackend = "local"
	// ArchiveBackendS3 stores archives in an S3-compatible bucket.
	ArchiveBackendS3 ArchiveBackend = "s3"
)

// ArchiveConfig contains archive store configuration.
type ArchiveConfig struct {
	// Backend is "local" or "s3".
	Backend ArchiveBackend `env:"ARCHIVE_BACKEND" envDefault:"local"`

	// LocalDir is the archive directory for the local backend.
	LocalDir string `env:"ARCHIVE_LOCAL_DIR" envDefault:"/var/lib/courserestore/archives"`

	// S3 settings for the s3 backend.
	S3Endpoint  string `env:"ARCHIVE_S3_ENDPOINT"   envDefault:"localhost:9000"`
	S3AccessKey string `env:"ARCHIVE_S3_ACCESS_KEY" envDefault:""`
	S3SecretKey string `env:"ARCHIVE_S3_SECRET_KEY" envDefault:""`
	S3Bucket    string `env:"ARCHIVE_S3_BUCKET"     envDefault:"course-backups"`
	S3UseSSL    bool   `env:"ARCHIVE_S3_USE_SSL"    envDefault:"false"`
}

// Sanitize applies guardrails to archive configuration values.
func (c *ArchiveConfig) Sanitize() {
	backend := ArchiveBackend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	if backend != ArchiveBackendS3 {
		backend = ArchiveBackendLocal
	}
	c.Backend = backend
	c.LocalDir = strings.TrimSpace(c.LocalDir)
	c.S3Endpoint = strings.TrimSpace(c.S3Endpoint)
	c.S3Bucket = strings.TrimSpace(c.S3Bucket)
}
