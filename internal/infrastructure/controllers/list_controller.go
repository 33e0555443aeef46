package controllers

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitbackup/internal/domain/commands"
	"github.com/rios0rios0/gitbackup/internal/domain/entities"
)

// ListController handles the "list" subcommand.
type ListController struct {
	command commands.List
}

// NewListController creates a new ListController.
func NewListController(command commands.List) *ListController {
	return &ListController{command: command}
}

// GetBind returns the Cobra command metadata for the list controller.
func (it *ListController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "list",
		Short: "Show where every repository would be mirrored",
		Long: `List every repository visible to the configured accounts, apply the
exclusion list and the classification rules, and print the local path each
one would be mirrored to. Nothing is cloned or fetched.`,
	}
}

// Execute prints the plan to the command output.
func (it *ListController) Execute(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	plan, err := it.command.Execute(context.Background(), settings)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(writer, "PLATFORM\tREPOSITORY\tPATH")
	for _, job := range plan.Jobs {
		_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\n", job.Descriptor.PlatformID, job.Descriptor.FullName(), job.LocalPath)
	}
	for _, outcome := range plan.Collisions {
		_, _ = fmt.Fprintf(writer, "%s\t%s\tSKIPPED: %s\n",
			outcome.Job.Descriptor.PlatformID, outcome.Job.Descriptor.FullName(), outcome.Detail)
	}
	if flushErr := writer.Flush(); flushErr != nil {
		return flushErr
	}

	if len(plan.PlatformFailures) > 0 {
		return ErrRunFailed
	}
	return nil
}

// AddFlags adds no flags: list only uses the persistent ones.
func (it *ListController) AddFlags(_ *cobra.Command) {}
