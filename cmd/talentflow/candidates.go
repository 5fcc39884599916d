package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"talentflow/internal/app"
	"talentflow/internal/domain"
	"talentflow/internal/engine"
)

func candidatesCmd() *cobra.Command {
	c := &cobra.Command{Use: "candidates", Short: "Browse and move candidates"}
	c.AddCommand(candidatesListCmd())
	c.AddCommand(candidatesShowCmd())
	c.AddCommand(candidatesStageCmd())
	c.AddCommand(candidatesTimelineCmd())
	c.AddCommand(candidatesNotesCmd())
	return c
}

func candidatesListCmd() *cobra.Command {
	var f engine.CandidateFilter
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List candidates with their job titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				list, err := env.Engine.ListCandidates(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(list)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Stage", "Job"})
				for i, c := range list.Candidates {
					if limit > 0 && i >= limit {
						break
					}
					tw.AppendRow(table.Row{c.ID, c.Name, c.Email, c.Stage, c.JobTitle})
				}
				tw.AppendFooter(table.Row{"", "", "", "total", list.Total})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.JobID, "job", "", "job id filter")
	cmd.Flags().StringVar(&f.Stage, "stage", "", "stage filter")
	cmd.Flags().StringVar(&f.Search, "search", "", "name or email substring")
	cmd.Flags().IntVar(&limit, "limit", 50, "rows to print in table mode (0 = all)")
	return cmd
}

func candidatesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				c, err := env.Engine.GetCandidate(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func candidatesStageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stage <id> <stage>",
		Short: "Move a candidate to a stage and record it on the timeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				c, err := env.Engine.UpdateCandidateStage(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func candidatesTimelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <id>",
		Short: "Show a candidate's timeline and stage progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				events, err := env.Engine.Timeline(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Event"})
				for _, ev := range events {
					tw.AppendRow(table.Row{ev.Timestamp.Format(time.DateTime), ev.Event})
				}
				tw.Render()

				entries := domain.StageEntries(events)
				progress := table.NewWriter()
				progress.SetOutputMirror(os.Stdout)
				progress.AppendHeader(table.Row{"Stage", "Entered"})
				for _, st := range domain.Pipeline {
					at, ok := entries[st]
					when := "-"
					if ok {
						when = at.Format(time.DateOnly)
					}
					progress.AppendRow(table.Row{st, when})
				}
				if at, ok := entries[domain.StageRejected]; ok {
					progress.AppendRow(table.Row{domain.StageRejected, at.Format(time.DateOnly)})
				}
				progress.Render()
				return nil
			})
		},
	}
}

func candidatesNotesCmd() *cobra.Command {
	var content string
	cmd := &cobra.Command{
		Use:   "notes <id>",
		Short: "Show or replace a candidate's notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if cmd.Flags().Changed("set") {
					if err := env.Engine.UpdateNotes(ctx, args[0], content); err != nil {
						return err
					}
				}
				n, err := env.Engine.Notes(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"content": n.Content})
				}
				fmt.Println(n.Content)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&content, "set", "", "replace the notes with this text")
	return cmd
}
