package controllers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitbackup/internal/domain/commands"
	"github.com/rios0rios0/gitbackup/internal/domain/entities"
)

// ErrRunFailed is returned when at least one repository or platform failed.
var ErrRunFailed = errors.New("synchronization finished with failures")

// SyncController handles the "sync" subcommand.
type SyncController struct {
	command commands.Sync
}

// NewSyncController creates a new SyncController.
func NewSyncController(command commands.Sync) *SyncController {
	return &SyncController{command: command}
}

// GetBind returns the Cobra command metadata for the sync controller.
func (it *SyncController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "sync",
		Short: "Mirror every reachable repository into the backup folder",
		Long: `List every repository visible to the configured GitHub and GitLab
accounts, classify it into a subfolder and bring its local mirror up to date.

New repositories are cloned, existing ones are fetched and their branches
fast-forwarded. A local branch that diverged from the remote is reset to the
remote tip: local-only commits on it are discarded.

This is the main command intended to be used in a cronjob.`,
	}
}

// Execute runs one synchronization. Interrupting the process stops new jobs from
// starting and lets the running ones finish.
func (it *SyncController) Execute(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	workers, _ := cmd.Flags().GetInt("workers")

	logger.Info("Starting gitbackup sync...")
	summary, err := it.command.Execute(ctx, settings, commands.SyncOptions{Workers: workers})
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if summary.HasFailures() {
		return ErrRunFailed
	}
	return nil
}

// AddFlags adds the sync-specific flags to the given Cobra command.
func (it *SyncController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("workers", "w", 0, "Number of repositories synchronized in parallel (default: max_concurrent_workers)")
}
