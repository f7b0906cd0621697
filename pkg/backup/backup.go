package backup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/runningman84/truenas-status/pkg/config"
	"k8s.io/klog/v2"
)

// configSaveEndpoint returns the configuration database as a binary stream
const configSaveEndpoint = "config/save"

// Downloader streams a file endpoint of the appliance
type Downloader interface {
	Download(ctx context.Context, method, path string, in interface{}) (io.ReadCloser, error)
}

// Uploader stores a local file under an object name
type Uploader interface {
	Upload(ctx context.Context, localPath, objectName string) error
}

// Result describes what happened to one backup
type Result struct {
	LocalPath string
	Uploaded  bool
	Deleted   bool

	// UploadError is set when an upload was attempted and failed
	UploadError *UploadError
}

// Manager runs the download, upload and cleanup steps of a backup
type Manager struct {
	config     *config.Config
	downloader Downloader
	uploader   Uploader
	now        func() time.Time
}

// NewManager creates a backup manager. uploader may be nil when object
// storage is not configured.
func NewManager(cfg *config.Config, downloader Downloader, uploader Uploader) *Manager {
	return &Manager{
		config:     cfg,
		downloader: downloader,
		uploader:   uploader,
		now:        time.Now,
	}
}

// Filename returns the backup file name for a point in time
func Filename(t time.Time) string {
	return fmt.Sprintf("truebackup_%s.db", t.Format("20060102_150405"))
}

// Run downloads the configuration backup and uploads it when an uploader is
// set. Upload failures are reported in the result and never returned.
func (m *Manager) Run(ctx context.Context) (*Result, error) {
	path, err := m.Download(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{LocalPath: path}

	if m.uploader == nil {
		klog.Infof("Object storage is not configured (missing %v), keeping local backup %s", m.config.MissingS3Settings(), path)
		return result, nil
	}

	objectName := filepath.Base(path)
	klog.Infof("Uploading %s to bucket %s", objectName, m.config.S3BucketName)
	if err := m.uploader.Upload(ctx, path, objectName); err != nil {
		uploadErr := Classify(err)
		result.UploadError = uploadErr
		klog.Warningf("Upload failed: %s", uploadErr.Description())
		klog.Infof("Local backup kept at %s", path)
		return result, nil
	}
	result.Uploaded = true
	klog.Infof("Uploaded %s to bucket %s", objectName, m.config.S3BucketName)

	if m.config.DeleteLocalBackupAfterUpload {
		if err := os.Remove(path); err != nil {
			klog.Warningf("Failed to delete local backup %s: %v", path, err)
		} else {
			result.Deleted = true
			klog.Infof("Deleted local backup %s", path)
		}
	}

	return result, nil
}

// Download saves the configuration database to BACKUP_DIR and returns the
// file path. The file is only created after the appliance answered with 2xx.
func (m *Manager) Download(ctx context.Context) (string, error) {
	body := map[string]bool{
		"secretseed":           m.config.BackupSecretSeed,
		"root_authorized_keys": m.config.BackupRootAuthorizedKeys,
	}

	klog.Infof("Requesting configuration backup")
	stream, err := m.downloader.Download(ctx, http.MethodPost, configSaveEndpoint, body)
	if err != nil {
		return "", fmt.Errorf("backup request failed: %w", err)
	}
	defer func() { _ = stream.Close() }()

	if err := os.MkdirAll(m.config.BackupDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create backup directory %s: %w", m.config.BackupDir, err)
	}

	path := filepath.Join(m.config.BackupDir, Filename(m.now()))
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}

	var result *multierror.Error
	written, err := io.Copy(file, stream)
	if err != nil {
		result = multierror.Append(result, err)
	}
	if err := file.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			klog.Warningf("Failed to remove partial backup %s: %v", path, rmErr)
		}
		return "", fmt.Errorf("failed to write backup file %s: %w", path, err)
	}

	klog.Infof("Backup saved as %s (%d bytes)", path, written)
	return path, nil
}
