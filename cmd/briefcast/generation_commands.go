package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"briefcast/internal/api"
	"briefcast/internal/services"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Request an immediate briefing generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := ctx.backendClient()
			if err != nil {
				return err
			}
			job, err := backend.Generate(cmd.Context())
			if errors.Is(err, services.ErrJobAlreadyRunning) {
				return errors.New("a generation is already in progress; check briefcast generations")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generation %s scheduled.\n", job.ID)
			return nil
		},
	}
}

func newGenerationsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "generations [id]",
		Short: "Show generation history or one generation in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := ctx.backendClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				job, err := backend.GetGeneration(cmd.Context(), args[0])
				if errors.Is(err, services.ErrNotFound) {
					return fmt.Errorf("generation %s not found", args[0])
				}
				if err != nil {
					return err
				}
				printJobDetail(out, job)
				return nil
			}

			list, err := backend.ListGenerations(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No generations yet.")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, job := range list {
				rows = append(rows, []string{
					job.ID,
					job.Status,
					job.ScheduledAt.Local().Format("2006-01-02 15:04"),
					formatSources(job.SourcesUsed),
					job.NotebookID,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Scheduled", "Sources", "Notebook"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of generations to list")
	return cmd
}

func printJobDetail(out io.Writer, job api.Job) {
	fmt.Fprintf(out, "ID:           %s\n", job.ID)
	fmt.Fprintf(out, "Status:       %s\n", job.Status)
	fmt.Fprintf(out, "Scheduled:    %s\n", job.ScheduledAt.Local().Format(time.RFC1123))
	if job.StartedAt != nil {
		fmt.Fprintf(out, "Started:      %s\n", job.StartedAt.Local().Format(time.RFC1123))
	}
	if job.CompletedAt != nil {
		fmt.Fprintf(out, "Completed:    %s\n", job.CompletedAt.Local().Format(time.RFC1123))
	}
	if job.NotebookID != "" {
		fmt.Fprintf(out, "Notebook:     %s\n", job.NotebookID)
	}
	if job.SourcesUsed != nil {
		used := job.SourcesUsed
		fmt.Fprintf(out, "Sources:      %d substack, %d rss, %d topics (%d items)\n",
			used.SubstackPosts, used.RSSFeeds, used.NewsTopics, used.TotalItems)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:        %s\n", job.ErrorMessage)
	}
}

func formatSources(used *api.SourcesUsed) string {
	if used == nil {
		return ""
	}
	parts := []string{}
	if used.SubstackPosts > 0 {
		parts = append(parts, fmt.Sprintf("%d substack", used.SubstackPosts))
	}
	if used.RSSFeeds > 0 {
		parts = append(parts, fmt.Sprintf("%d rss", used.RSSFeeds))
	}
	if used.NewsTopics > 0 {
		parts = append(parts, fmt.Sprintf("%d topics", used.NewsTopics))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("%s / %d items", strings.Join(parts, ", "), used.TotalItems)
}
