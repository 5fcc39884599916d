package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"talentflow/internal/app"
	"talentflow/internal/domain"
	"talentflow/internal/engine"
	"talentflow/internal/repo"
)

func jobsCmd() *cobra.Command {
	jobs := &cobra.Command{Use: "jobs", Short: "Manage the job board"}
	jobs.AddCommand(jobsListCmd())
	jobs.AddCommand(jobsShowCmd())
	jobs.AddCommand(jobsCreateCmd())
	jobs.AddCommand(jobsUpdateCmd())
	jobs.AddCommand(jobsReorderCmd())
	jobs.AddCommand(jobsTagsCmd())
	jobs.AddCommand(jobsTitlesCmd())
	jobs.AddCommand(jobsStatsCmd())
	return jobs
}

func jobsListCmd() *cobra.Command {
	var f engine.JobFilter
	var tags string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a page of jobs in board order",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Tags = splitTags(tags)
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				page, err := env.Engine.ListJobs(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(page)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Order", "ID", "Title", "Status", "Tags", "Candidates"})
				for _, j := range page.Jobs {
					tw.AppendRow(table.Row{j.Order, j.ID, j.Title, j.Status, strings.Join(j.Tags, ", "), j.Candidates})
				}
				tw.AppendFooter(table.Row{"", "", fmt.Sprintf("page %d, %d of %d", page.Page, len(page.Jobs), page.Total)})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&f.Page, "page", engine.DefaultPage, "page number")
	cmd.Flags().IntVar(&f.PageSize, "page-size", engine.DefaultPageSize, "jobs per page")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter (active, archived)")
	cmd.Flags().StringVar(&f.Search, "search", "", "title substring")
	cmd.Flags().StringVar(&tags, "tags", "", "comma separated tags; all must match")
	return cmd
}

func jobsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				j, err := env.Engine.GetJob(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(j)
			})
		},
	}
}

func jobsCreateCmd() *cobra.Command {
	var in engine.JobInput
	var tags string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a job at the end of the board",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Tags = splitTags(tags)
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				j, err := env.Engine.CreateJob(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(j)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "job title")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&in.Slug, "slug", "", "slug (derived from the title when empty)")
	cmd.Flags().StringVar(&tags, "tags", "", "comma separated tags")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func jobsUpdateCmd() *cobra.Command {
	var title, description, slug, status, tags string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update job fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p repo.JobPatch
			if cmd.Flags().Changed("title") {
				p.Title = &title
			}
			if cmd.Flags().Changed("description") {
				p.Description = &description
			}
			if cmd.Flags().Changed("slug") {
				p.Slug = &slug
			}
			if cmd.Flags().Changed("status") {
				st := domain.JobStatus(status)
				p.Status = &st
			}
			if cmd.Flags().Changed("tags") {
				t := splitTags(tags)
				p.Tags = &t
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if _, err := env.Engine.UpdateJob(ctx, args[0], p); err != nil {
					return err
				}
				j, err := env.Engine.GetJob(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(j)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "job title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&slug, "slug", "", "slug")
	cmd.Flags().StringVar(&status, "status", "", "active or archived")
	cmd.Flags().StringVar(&tags, "tags", "", "comma separated tags (replaces all)")
	return cmd
}

func jobsReorderCmd() *cobra.Command {
	var from, to int
	cmd := &cobra.Command{
		Use:   "reorder <id>",
		Short: "Move a job to another board position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := env.Engine.ReorderJob(ctx, args[0], from, to); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]bool{"success": true})
				}
				fmt.Printf("moved %s from %d to %d\n", args[0], from, to)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "current order")
	cmd.Flags().IntVar(&to, "to", 0, "target order")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func jobsTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List distinct job tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				tags, err := env.Engine.UniqueTags(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tags)
				}
				for _, t := range tags {
					fmt.Println(t)
				}
				return nil
			})
		},
	}
}

func jobsTitlesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "titles",
		Short: "List job ids and titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				titles, err := env.Engine.JobTitles(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(titles)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title"})
				for _, t := range titles {
					tw.AppendRow(table.Row{t.ID, t.Title})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func jobsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Total and active job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				s, err := env.Engine.Stats(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
}
