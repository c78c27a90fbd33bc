package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"rentdetail/internal/app/detail"
	"rentdetail/internal/infra/config"
	"rentdetail/internal/infra/obs"
	"rentdetail/internal/ui/terminal"
)

func newViewCmd() *cobra.Command {
	var (
		id      string
		logFile string
	)
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show one listing in the terminal",
		Example: `  # Open listing 42 with the configured source
  rentdetail view --id 42`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runView(cmd.Context(), id, logFile)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "listing identifier")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file (stdout is used by the viewer)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func runView(ctx context.Context, id, logFile string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.DiscardHandler)
	if logFile != "" {
		fileLogger, closeLog, err := obs.NewFileLogger(logFile, cfg.Env)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer closeLog()
		logger = fileLogger
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.close(context.Background()) }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctrl := detail.NewController(app.store, id, logger)
	defer ctrl.Unmount()

	program := tea.NewProgram(
		terminal.NewModel(ctx, ctrl, app.imageURL(ctx)),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running listing viewer: %w", err)
	}
	return nil
}
