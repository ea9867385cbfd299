package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/blueprint/internal/calendar"
	"github.com/rcliao/blueprint/internal/domain"
	"github.com/rcliao/blueprint/internal/events"
	"github.com/rcliao/blueprint/internal/export"
	"github.com/rcliao/blueprint/internal/schedule"
	"github.com/rcliao/blueprint/internal/service"
	"github.com/rcliao/blueprint/internal/storage"
)

var (
	scheduleFile     string
	scheduleSignDate string
	scheduleFormat   string
	scheduleOutput   string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule a proposal document and print it",
	Long: `Reads a YAML or JSON proposal document, schedules every task from the
contract sign date and prints the result.

Without --file the built-in sample proposal is used.

Example:
  blueprint schedule --file proposal.yaml --sign-date 2024-01-05 --format ics`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVarP(&scheduleFile, "file", "f", "", "Proposal document (.yaml, .yml or .json)")
	scheduleCmd.Flags().StringVar(&scheduleSignDate, "sign-date", "", "Contract sign date (YYYY-MM-DD), overrides the document")
	scheduleCmd.Flags().StringVar(&scheduleFormat, "format", export.FormatMarkdown, "Output format: markdown, csv, ics, json or yaml")
	scheduleCmd.Flags().StringVarP(&scheduleOutput, "output", "o", "", "Also write the scheduled document to this path")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cal, err := cfg.BuildCalendar()
	if err != nil {
		return err
	}
	opts, err := cfg.SchedulerOptions()
	if err != nil {
		return err
	}

	scheduler := schedule.New(cal, schedule.WithOptions(opts))
	proposals := service.NewProposalService(storage.NewMemoryStorage(), scheduler, events.NewBus(), logger)

	var proposal *domain.Proposal
	if scheduleFile != "" {
		proposal, err = proposals.Import(scheduleFile)
	} else {
		proposal = domain.SampleProposal()
		err = proposals.Create(proposal)
	}
	if err != nil {
		return err
	}

	if scheduleSignDate != "" {
		sign, err := calendar.ParseDate(scheduleSignDate)
		if err != nil {
			return err
		}
		if proposal, err = proposals.SetContractSignDate(proposal.ID, sign); err != nil {
			return err
		}
	}

	if scheduleOutput != "" {
		if err := proposals.Export(proposal.ID, scheduleOutput); err != nil {
			return err
		}
		logger.Info("wrote scheduled proposal", zap.String("path", scheduleOutput))
	}

	headers := service.NewHeaderGenerator(0)
	out, err := export.Render(proposal, scheduleFormat, time.Now().UTC(), headers.Generate)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}
