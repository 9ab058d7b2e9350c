package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"govline/internal/config"
	"govline/internal/db"
	"govline/internal/domain"
	"govline/internal/engine"
	"govline/internal/ledger"
	"govline/internal/migrate"
	"govline/internal/repo"
	"govline/internal/scan"
	"govline/internal/server"
	"govline/internal/textgen"
)

var rootCmd = &cobra.Command{
	Use:   "gv",
	Short: "Govline CLI",
	Long: `Govline runs a change governance pipeline for autonomous agents.
Core concepts:
- Change requests: proposals from agents; statuses go pending -> under-review -> approved -> applied (rejected/resubmit are the detours).
- Review: the approval authority runs the requester's mandatory checks; two consecutive failing reviews reject the request for good.
- Compliance rules: forbidden terms, raw color/spacing literals, untyped escapes, wrong-locale identifiers, leftover debug noise.
- Learning store: recurring violations accumulate occurrence counts so fixes can be prioritized ('gv patterns list').
- Ledger: append-only work documentation; records get validated, then signed, and a signed judgment is immutable.
- Event log: diary of every state change, view with 'gv log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("GOVLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(requestCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(ledgerCmd())
	rootCmd.AddCommand(patternsCmd())
	rootCmd.AddCommand(agentsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline status",
		Long:  "See the scoreboard: request counts per status and open learning patterns.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				counts, err := e.Repo.CountRequestsByStatus(ctx)
				if err != nil {
					return err
				}
				unfixed, err := e.Learning.FindUnfixed(ctx)
				if err != nil {
					return err
				}
				out := map[string]any{
					"pipeline_id":      e.Config.Pipeline.ID,
					"request_counts":   counts,
					"unfixed_patterns": len(unfixed),
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Pipeline: %s\n", e.Config.Pipeline.ID)
				fmt.Println("Requests:")
				for status, c := range counts {
					fmt.Printf("  %s: %d\n", status, c)
				}
				fmt.Printf("Unfixed patterns: %d\n", len(unfixed))
				return nil
			})
		},
	}
	return cmd
}

func requestCmd() *cobra.Command {
	req := &cobra.Command{
		Use:   "request",
		Short: "Manage change requests",
		Long:  "Change requests flow pending -> under-review -> approved -> applied. A failing review returns them to pending; a second consecutive failure rejects them.",
	}
	req.AddCommand(requestSubmitCmd())
	req.AddCommand(requestListCmd())
	req.AddCommand(requestShowCmd())
	req.AddCommand(requestReviewCmd())
	req.AddCommand(requestResubmitCmd())
	req.AddCommand(requestApplyCmd())
	req.AddCommand(requestApproveCmd())
	return req
}

func requestSubmitCmd() *cobra.Command {
	var opts engine.SubmitOptions
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a change request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.RequesterAgent == "" {
				opts.RequesterAgent = viper.GetString("actor-id")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				cr, created, err := e.SubmitRequest(ctx, opts)
				if err != nil {
					return err
				}
				if !created && !viper.GetBool("json") {
					fmt.Printf("duplicate of open request %s; returning existing\n", cr.ID)
				}
				return printJSONOrTable(cr)
			})
		},
	}
	cmd.Flags().StringVar(&opts.RequesterAgent, "agent", "", "requester agent id (defaults to --actor-id)")
	cmd.Flags().StringVar(&opts.Type, "type", "best-practice-suggestion", "request type")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Justification, "justification", "", "justification")
	cmd.Flags().StringVar(&opts.Priority, "priority", "medium", "priority (low, medium, high, critical)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func requestListCmd() *cobra.Command {
	var status, agent string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List change requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.Repo.ListRequests(ctx, status, agent)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Agent", "Type", "Status", "Strikes"})
				for _, cr := range items {
					tw.AppendRow(table.Row{cr.ID, cr.Title, cr.RequesterAgent, cr.Type, cr.Status, cr.FailureCount})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&agent, "agent", "", "requester agent filter")
	return cmd
}

func requestShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a change request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				cr, err := e.Repo.GetRequest(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(cr)
			})
		},
	}
	return cmd
}

func requestReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review <id>",
		Short: "Run the approval authority over a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				decision, err := e.ReviewRequest(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(decision)
			})
		},
	}
	return cmd
}

func requestResubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resubmit <id>",
		Short: "Resubmit a rejected request after revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if err := e.ResubmitRequest(ctx, args[0], viper.GetString("actor-id")); err != nil {
					return err
				}
				cr, err := e.Repo.GetRequest(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(cr)
			})
		},
	}
	return cmd
}

func requestApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <id>",
		Short: "Mark an approved request as applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if err := e.MarkApplied(ctx, args[0], viper.GetString("actor-id")); err != nil {
					return err
				}
				cr, err := e.Repo.GetRequest(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(cr)
			})
		},
	}
	return cmd
}

func requestApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Finalize multi-area sign-off for a flagged request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if err := e.ApproveMultiSign(ctx, args[0], viper.GetString("actor-id")); err != nil {
					return err
				}
				cr, err := e.Repo.GetRequest(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(cr)
			})
		},
	}
	return cmd
}

func chatCmd() *cobra.Command {
	var history []string
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Talk to the conversational boundary",
		Long:  "Sends a free-form message. A reply always comes back; a change request may be filed as a side effect when the message sounds like a change proposal.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				result, err := e.SubmitConversation(ctx, viper.GetString("actor-id"), text, history)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(result)
				}
				fmt.Println(result.Reply)
				if result.Request != nil {
					fmt.Printf("request: %s (%s)\n", result.Request.ID, result.Request.Status)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&history, "history", []string{}, "prior conversation turns (repeatable)")
	return cmd
}

func checkCmd() *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Scan one artifact against the compliance rules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := ""
			if len(args) == 1 {
				filePath = args[0]
				data, err := os.ReadFile(filePath)
				if err != nil {
					return err
				}
				text = string(data)
			}
			if text == "" {
				return fmt.Errorf("provide a file argument or --text")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				report := e.Validator.Evaluate(text, filePath)
				if viper.GetBool("json") {
					return printJSON(report)
				}
				fmt.Printf("compliant: %v (errors=%d warnings=%d info=%d)\n",
					report.Compliant, report.Summary.Errors, report.Summary.Warnings, report.Summary.Info)
				for _, v := range report.Violations {
					fmt.Printf("  [%s] %s: %s", v.Severity, v.Rule, v.Message)
					if v.Line > 0 {
						fmt.Printf(" (line %d)", v.Line)
					}
					fmt.Println()
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "inline text to check")
	return cmd
}

func scanCmd() *cobra.Command {
	var groupSize int
	cmd := &cobra.Command{
		Use:   "scan <path>...",
		Short: "Batch-scan files and learn recurring patterns",
		Long:  "Scans files in bounded concurrent groups. Violations feed the learning store attributed to --actor-id.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifacts, err := collectArtifacts(args)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				size := groupSize
				if size == 0 {
					size = e.Config.Scanner.GroupSize
				}
				scanner := scan.New(e.Validator, e.Learning, viper.GetString("actor-id"), size)
				summary, err := scanner.Run(ctx, artifacts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(summary)
				}
				fmt.Printf("scanned %d artifacts, %d compliant (errors=%d warnings=%d info=%d)\n",
					summary.Scanned, summary.Compliant,
					summary.Violations.Errors, summary.Violations.Warnings, summary.Violations.Info)
				for _, r := range summary.Results {
					if r.Report.Compliant {
						continue
					}
					fmt.Printf("  %s: %d violations\n", r.Path, len(r.Report.Violations))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&groupSize, "group-size", 0, "concurrent group size (defaults to config)")
	return cmd
}

func collectArtifacts(paths []string) ([]scan.Artifact, error) {
	var artifacts []scan.Artifact
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, err
			}
			artifacts = append(artifacts, scan.Artifact{Path: p, Text: string(data)})
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != p {
					return filepath.SkipDir
				}
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			artifacts = append(artifacts, scan.Artifact{Path: path, Text: string(data)})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return artifacts, nil
}

func ledgerCmd() *cobra.Command {
	led := &cobra.Command{
		Use:   "ledger",
		Short: "Work documentation ledger",
		Long:  "Append-only records of performed work. Validate records a judgment; sign freezes it. A signed judgment can never be changed.",
	}
	led.AddCommand(ledgerRecordCmd())
	led.AddCommand(ledgerShowCmd())
	led.AddCommand(ledgerListCmd())
	led.AddCommand(ledgerValidateCmd())
	led.AddCommand(ledgerSignCmd())
	return led
}

func ledgerRecordCmd() *cobra.Command {
	var entry domain.WorkDocumentation
	var issues []string
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Append a work documentation record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if entry.BotName == "" {
				entry.BotName = viper.GetString("actor-id")
			}
			entry.Reflection.Issues = issues
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				id, err := e.Ledger.Record(ctx, entry)
				if err != nil {
					return err
				}
				rec, err := e.Ledger.Get(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&entry.BotName, "bot", "", "bot name (defaults to --actor-id)")
	cmd.Flags().StringVar(&entry.Area, "area", "", "work area")
	cmd.Flags().StringVar(&entry.Task, "task", "", "task description")
	cmd.Flags().StringVar(&entry.Result, "result", "", "result")
	cmd.Flags().StringVar(&entry.Reflection.Before, "before", "", "state before")
	cmd.Flags().StringVar(&entry.Reflection.During, "during", "", "what happened during")
	cmd.Flags().StringVar(&entry.Reflection.After, "after", "", "state after")
	cmd.Flags().StringArrayVar(&issues, "issue", []string{}, "issue encountered (repeatable)")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func ledgerShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a ledger record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				rec, err := e.Ledger.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	return cmd
}

func ledgerListCmd() *cobra.Command {
	var f ledgerFilterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.Ledger.Query(ctx, f.toFilter())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Bot", "Area", "Task", "Result", "Signed By"})
				for _, rec := range items {
					signed := ""
					if rec.SignedBy != nil {
						signed = *rec.SignedBy
					}
					tw.AppendRow(table.Row{rec.ID, rec.BotName, rec.Area, rec.Task, rec.Result, signed})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Bot, "bot", "", "bot name filter")
	cmd.Flags().StringVar(&f.Area, "area", "", "area filter")
	cmd.Flags().BoolVar(&f.Signed, "signed", false, "only signed records")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max records")
	return cmd
}

type ledgerFilterFlags struct {
	Bot    string
	Area   string
	Signed bool
	Limit  int
}

func (f ledgerFilterFlags) toFilter() ledger.Filter {
	return ledger.Filter{BotName: f.Bot, Area: f.Area, SignedOnly: f.Signed, Limit: f.Limit}
}

func ledgerValidateCmd() *cobra.Command {
	var passed bool
	var issues []string
	cmd := &cobra.Command{
		Use:   "validate <id>",
		Short: "Record a validation judgment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if err := e.Ledger.Validate(ctx, args[0], viper.GetString("actor-id"), passed, issues); err != nil {
					return err
				}
				rec, err := e.Ledger.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().BoolVar(&passed, "passed", false, "validation passed")
	cmd.Flags().StringArrayVar(&issues, "issue", []string{}, "issue found (repeatable)")
	return cmd
}

func ledgerSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <id>",
		Short: "Sign off a validated record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				rec, err := e.Ledger.Sign(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	return cmd
}

func patternsCmd() *cobra.Command {
	pat := &cobra.Command{
		Use:   "patterns",
		Short: "Learned error patterns",
		Long:  "Recurring violations learned from reviews and scans, with occurrence counts.",
	}
	pat.AddCommand(patternsListCmd())
	pat.AddCommand(patternsFixCmd())
	return pat
}

func patternsListCmd() *cobra.Command {
	var agent string
	var unfixed bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List error patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				var (
					items []domain.ErrorPattern
					err   error
				)
				switch {
				case agent != "":
					items, err = e.Learning.FindByAgent(ctx, agent)
				case unfixed:
					items, err = e.Learning.FindUnfixed(ctx)
				default:
					items, err = e.Learning.List(ctx)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Pattern", "File", "Agent", "Count", "Fixed"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Pattern, p.FilePath, p.Agent, p.Occurrences, p.Fixed})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "filter by agent")
	cmd.Flags().BoolVar(&unfixed, "unfixed", false, "only unfixed patterns")
	return cmd
}

func patternsFixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix <id>",
		Short: "Mark a pattern as fixed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if err := e.Learning.MarkFixed(ctx, args[0]); err != nil {
					return err
				}
				p, err := e.Learning.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func agentsCmd() *cobra.Command {
	ag := &cobra.Command{
		Use:   "agents",
		Short: "Agent workflow definitions",
	}
	ag.AddCommand(agentsListCmd())
	ag.AddCommand(agentsShowCmd())
	return ag
}

func agentsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				defs := e.Workflows.List()
				if viper.GetBool("json") {
					return printJSON(defs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Agent", "Steps", "Mandatory Checks"})
				for _, d := range defs {
					tw.AppendRow(table.Row{d.AgentID, strings.Join(d.Steps, ", "), strings.Join(d.MandatoryChecks, ", ")})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func agentsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <agent>",
		Short: "Show one agent's workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				def, err := e.Workflows.Get(args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(def)
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect pipeline config",
		Long:  "Config is the rulebook (govline.yml): compliance rules, agent workflows, approval thresholds and scanner settings.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var pipelineID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default govline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(pipelineID)), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&pipelineID, "id", "local", "pipeline id")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate govline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyRevokeCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var actor, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actor == "" {
				actor = viper.GetString("actor-id")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				secret := uuid.NewString()
				rec := domain.APIKey{
					ID:      uuid.NewString(),
					ActorID: actor,
					Name:    name,
					KeyHash: repo.HashAPIKey(secret),
				}
				if err := e.Repo.InsertAPIKey(ctx, nil, rec); err != nil {
					return err
				}
				out := map[string]string{"id": rec.ID, "actor_id": actor, "key": secret}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("id: %s\nkey: %s\n(the key is shown once; only its hash is stored)\n", rec.ID, secret)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor id (defaults to --actor-id)")
	cmd.Flags().StringVar(&name, "name", "", "key name")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				keys, err := e.Repo.ListAPIKeys(ctx, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor filter")
	return cmd
}

func apikeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: submissions, status changes, sign-offs.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				events, err := e.Repo.ListEvents(ctx, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowLegacyActor bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := resolveConfig(workspace)
			if err != nil {
				return err
			}
			e := newEngine(conn, cfg)
			authCfg := server.AuthConfig{
				JWTSecret:              os.Getenv("GOVLINE_JWT_SECRET"),
				AllowLegacyActorHeader: allowLegacyActor,
			}
			if authCfg.JWTSecret == "" && !allowLegacyActor {
				return fmt.Errorf("GOVLINE_JWT_SECRET is required for bearer auth (or pass --allow-legacy-actor)")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Govline API on http://%s%s (OpenAPI at %s/openapi.json)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowLegacyActor, "allow-legacy-actor", false, "accept unauthenticated X-Actor-Id (dev only)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := resolveConfig(workspace)
	if err != nil {
		return err
	}
	return fn(ctx, newEngine(conn, cfg))
}

func resolveConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default("local")
	}
	return cfg, nil
}

func newEngine(conn *sql.DB, cfg *config.Config) *engine.Engine {
	e := engine.New(conn, cfg)
	if cfg.TextGen.Endpoint != "" {
		e.TextGen = textgen.NewClient(
			cfg.TextGen.Endpoint,
			time.Duration(cfg.TextGen.TimeoutSeconds)*time.Second,
			cfg.TextGen.MaxRetries,
		)
	}
	return e
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
