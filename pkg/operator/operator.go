package operator

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/runningman84/truenas-status/pkg/aggregate"
	"github.com/runningman84/truenas-status/pkg/backup"
	"github.com/runningman84/truenas-status/pkg/config"
	"github.com/runningman84/truenas-status/pkg/metrics"
	"github.com/runningman84/truenas-status/pkg/models"
	"github.com/runningman84/truenas-status/pkg/prompt"
	"github.com/runningman84/truenas-status/pkg/render"
	"github.com/runningman84/truenas-status/pkg/truenas"
	"github.com/runningman84/truenas-status/pkg/units"
	"k8s.io/klog/v2"
)

// BackupQuestion is asked after the dashboard in rich mode
const BackupQuestion = "Save a configuration backup now?"

// usageWarningPercent is the pool usage above which a warning is logged
const usageWarningPercent = 90.0

// Operator collects the appliance state, presents it and runs backups
type Operator struct {
	config     *config.Config
	manager    *truenas.Manager
	aggregator *aggregate.Aggregator
	presenter  render.Presenter
	confirmer  prompt.Confirmer
	out        io.Writer
	now        func() time.Time
}

// NewOperator creates a new operator instance writing to stdout
func NewOperator(cfg *config.Config) *Operator {
	return &Operator{
		config:     cfg,
		manager:    truenas.NewManager(cfg),
		aggregator: aggregate.NewAggregator(),
		presenter:  render.New(cfg.OutputFormat),
		confirmer:  prompt.NewTerminal(),
		out:        os.Stdout,
		now:        time.Now,
	}
}

// SetOutput replaces the stream the snapshot is written to
func (o *Operator) SetOutput(w io.Writer) {
	o.out = w
}

// SetConfirmer replaces the backup confirmation
func (o *Operator) SetConfirmer(c prompt.Confirmer) {
	o.confirmer = c
}

// Run fetches, aggregates and presents the appliance state. In rich mode it
// then offers a configuration backup. Backup failures are logged, not returned.
func (o *Operator) Run(ctx context.Context) error {
	o.logConfig()

	snap := o.Collect(ctx)

	if o.config.TextfilePath != "" {
		reg := metrics.NewRegistry()
		reg.Observe(snap)
		if err := reg.WriteTextfile(o.config.TextfilePath); err != nil {
			klog.Warningf("%v", err)
		}
	}

	if err := o.presenter.Present(o.out, snap); err != nil {
		return fmt.Errorf("failed to present snapshot: %w", err)
	}

	if o.config.IsJSON() {
		return nil
	}

	if !o.confirmer.Confirm(BackupQuestion) {
		klog.Infof("Backup skipped")
		return nil
	}

	if _, err := o.Backup(ctx); err != nil {
		klog.Errorf("Backup failed: %v", err)
	}
	return nil
}

// Collect fetches every resource in order and aggregates them into a snapshot.
// Failed fetches are recorded in the snapshot warnings.
func (o *Operator) Collect(ctx context.Context) *models.Snapshot {
	systemInfo := o.manager.GetSystemInfo(ctx)
	datasets := o.manager.GetDatasets(ctx)
	rawPools := o.manager.GetPools(ctx)
	disks := o.manager.GetDisks(ctx)
	appSpace := o.manager.GetAppSpace(ctx)
	alerts := o.manager.GetAlerts(ctx)

	pools := o.aggregator.Aggregate(rawPools, disks, datasets)
	for i := range pools {
		o.logPoolHealth(&pools[i])
	}

	snap := &models.Snapshot{
		Timestamp:    o.now().UTC(),
		SystemInfo:   systemInfo,
		Pools:        pools,
		Datasets:     datasets,
		Applications: appSpace,
		Alerts:       alerts,
		Warnings:     o.manager.Warnings(),
	}

	klog.Infof("Collected %d pool(s), %d dataset(s), %d alert(s) with %d warning(s)",
		len(snap.Pools), len(snap.Datasets), len(snap.Alerts), len(snap.Warnings))
	return snap
}

// Backup downloads the configuration database and uploads it to object
// storage when configured
func (o *Operator) Backup(ctx context.Context) (*backup.Result, error) {
	var uploader backup.Uploader
	if o.config.S3Configured() {
		s3, err := backup.NewS3Uploader(o.config)
		if err != nil {
			klog.Warningf("Object storage upload disabled: %v", err)
		} else {
			uploader = s3
		}
	}

	result, err := backup.NewManager(o.config, o.manager.Client(), uploader).Run(ctx)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Operator) logConfig() {
	klog.Info("Current config")
	klog.Infof("Log level: %s", o.config.LogLevel)
	klog.Infof("Output format: %s", o.config.OutputFormat)
	klog.Infof("TrueNAS URL: %s", o.config.TrueNASURL)
	klog.Infof("Auth method: %s", o.config.AuthMethod)
	if o.config.AuthMethod == config.AuthMethodBasic {
		klog.Infof("User: %s", o.config.Username)
		klog.Infof("Password: %s", mask(o.config.Password))
	} else {
		klog.Infof("API key: %s", mask(o.config.APIKey))
	}
	klog.Infof("Verify SSL: %t", o.config.VerifySSL)
	klog.Infof("Request timeout: %s", o.config.Timeout)
	klog.Infof("Backup directory: %s", o.config.BackupDir)
	if o.config.S3Configured() {
		klog.Infof("S3 endpoint: %s", o.config.S3EndpointURL)
		klog.Infof("S3 bucket: %s", o.config.S3BucketName)
		klog.Infof("S3 access key: %s", mask(o.config.S3AccessKeyID))
		klog.Infof("S3 secret key: %s", mask(o.config.S3SecretAccessKey))
		klog.Infof("Delete local backup after upload: %t", o.config.DeleteLocalBackupAfterUpload)
	} else {
		klog.Infof("S3 upload: disabled (missing %v)", o.config.MissingS3Settings())
	}
	if o.config.TextfilePath != "" {
		klog.Infof("Metrics textfile: %s", o.config.TextfilePath)
	}
}

// logPoolHealth logs warnings for pools that need attention
func (o *Operator) logPoolHealth(pool *models.PoolRecord) {
	if pool.Status != "ONLINE" {
		klog.Warningf(" Pool %s is %s", pool.Name, pool.Status)
	}

	if pool.ReadErrors > 0 {
		klog.Warningf(" Pool %s has %d read error(s)", pool.Name, pool.ReadErrors)
	}
	if pool.WriteErrors > 0 {
		klog.Warningf(" Pool %s has %d write error(s)", pool.Name, pool.WriteErrors)
	}
	if pool.ChecksumErrors > 0 {
		klog.Warningf(" Pool %s has %d checksum error(s)", pool.Name, pool.ChecksumErrors)
	}
	if pool.HasErrors() {
		klog.Warningf(" Pool %s has errors - consider running a scrub", pool.Name)
	}

	if pool.Resilvering.Active {
		klog.Infof("Pool %s is resilvering (%.2f%%)", pool.Name, pool.Resilvering.ProgressPercent)
	}

	if pool.HasSpace() {
		klog.Infof("Pool %s usage: %s used of %s (%s)", pool.Name,
			units.FormatBytes(pool.AllocatedBytes), units.FormatBytes(pool.SizeBytes), units.FormatPercent(pool.UsedPercent))
		if *pool.UsedPercent > usageWarningPercent {
			klog.Warningf(" Pool %s is above %.0f%% usage", pool.Name, usageWarningPercent)
		}
	} else {
		klog.V(1).Infof(" Pool %s has no space statistics", pool.Name)
	}
}

// mask hides a secret, keeping only whether it is set
func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "********"
}
