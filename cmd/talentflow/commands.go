package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"talentflow/internal/app"
	"talentflow/internal/config"
	"talentflow/internal/domain"
	"talentflow/internal/engine"
	"talentflow/internal/server"
)

func seedCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the store with mock jobs, candidates and assessments",
		Long:  "Seeds an empty store. A store written by an older schema is cleared and reseeded; a current one is left alone unless --force is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				res, err := env.Seed(ctx, force)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				if res.Skipped {
					fmt.Println("store already seeded; use --force to reseed")
					return nil
				}
				fmt.Printf("seeded %d jobs, %d candidates, %d timeline events, %d assessments\n",
					res.Jobs, res.Candidates, res.Events, res.Assessments)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reseed even if the store is current")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mock REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if !cmd.Flags().Changed("addr") {
					addr = env.Config.Server.Addr
				}
				if !cmd.Flags().Changed("base-path") {
					basePath = env.Config.Server.BasePath
				}
				if seed {
					if _, err := env.Seed(ctx, false); err != nil {
						return err
					}
				}
				handler, err := server.New(server.Config{Engine: env.Engine, BasePath: basePath, Log: logger})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(sctx)
				}()
				logger.Info("serving TalentFlow API", "addr", addr, "base_path", basePath, "simulate", viper.GetBool("simulate"))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from talentflow.yml)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from talentflow.yml)")
	cmd.Flags().BoolVar(&seed, "seed", true, "seed an empty store before serving")
	return cmd
}

func assessmentsCmd() *cobra.Command {
	a := &cobra.Command{Use: "assessments", Short: "Manage job assessments"}
	a.AddCommand(&cobra.Command{
		Use:   "show <jobId>",
		Short: "Print a job's assessment structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				as, err := env.Engine.GetAssessment(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(as)
			})
		},
	})

	var file string
	put := &cobra.Command{
		Use:   "put <jobId>",
		Short: "Replace a job's assessment from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				as, err := env.Engine.SaveAssessment(ctx, args[0], raw)
				if err != nil {
					var verr *engine.ValidationError
					if errors.As(err, &verr) {
						for field, msg := range verr.Fields {
							fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
						}
					}
					return err
				}
				return printJSONOrTable(as)
			})
		},
	}
	put.Flags().StringVar(&file, "file", "", "path to the structure JSON")
	_ = put.MarkFlagRequired("file")
	a.AddCommand(put)

	a.AddCommand(&cobra.Command{
		Use:   "responses <jobId>",
		Short: "List submitted responses for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				rs, err := env.Engine.Responses(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rs)
			})
		},
	})
	return a
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Job counts and candidates per stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				var jobs engine.JobStats
				var stages map[domain.Stage]int
				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					var err error
					jobs, err = env.Engine.Stats(gctx)
					return err
				})
				g.Go(func() error {
					var err error
					stages, err = env.Engine.StageCounts(gctx)
					return err
				})
				if err := g.Wait(); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"jobs": jobs, "stages": stages})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Metric", "Count"})
				tw.AppendRow(table.Row{"jobs", jobs.Total})
				tw.AppendRow(table.Row{"active jobs", jobs.Active})
				tw.AppendSeparator()
				for _, st := range domain.Stages {
					tw.AppendRow(table.Row{st, stages[st]})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "talentflow.yml sets simulated latency, failure rates, write pacing, seed sizes and the server address. Missing files fall back to defaults.",
	}
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(c)
			}
			out, err := yaml.Marshal(c)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default talentflow.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate talentflow.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	})
	return cfg
}
