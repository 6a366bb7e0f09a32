package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/outboundhq/pipeline-orchestrator/internal/agent"
	"github.com/outboundhq/pipeline-orchestrator/internal/config"
	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
	"github.com/outboundhq/pipeline-orchestrator/internal/llm"
	"github.com/outboundhq/pipeline-orchestrator/internal/mailer"
	"github.com/outboundhq/pipeline-orchestrator/internal/notify"
	"github.com/outboundhq/pipeline-orchestrator/internal/orchestrator"
	"github.com/outboundhq/pipeline-orchestrator/internal/scheduler"
	"github.com/outboundhq/pipeline-orchestrator/internal/store"
	"github.com/outboundhq/pipeline-orchestrator/web/api"
)

var (
	listStage       string
	triggerAgent    string
	triggerProspect string
	triggerPayload  string
	addEmail        string
	addCompany      string
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and web API",
		RunE:  runServe,
	}
	rootCmd.AddCommand(serveCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline and queue status",
		RunE:  runStatus,
	}
	rootCmd.AddCommand(statusCmd)

	triggerCmd := &cobra.Command{
		Use:   "trigger",
		Short: "Enqueue one task and process the queue",
		RunE:  runTrigger,
	}
	triggerCmd.Flags().StringVar(&triggerAgent, "agent", "", "agent type (outreach, followup, response_classifier, stage_manager)")
	triggerCmd.Flags().StringVar(&triggerProspect, "prospect", "", "prospect ID")
	triggerCmd.Flags().StringVar(&triggerPayload, "payload", "", "JSON payload for the agent")
	triggerCmd.MarkFlagRequired("agent")
	triggerCmd.MarkFlagRequired("prospect")
	rootCmd.AddCommand(triggerCmd)

	prospectCmd := &cobra.Command{
		Use:   "prospect",
		Short: "Manage prospects",
	}
	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a prospect and queue initial outreach",
		Args:  cobra.ExactArgs(1),
		RunE:  runProspectAdd,
	}
	addCmd.Flags().StringVar(&addEmail, "email", "", "email address")
	addCmd.Flags().StringVar(&addCompany, "company", "", "company name")
	prospectCmd.AddCommand(addCmd)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List prospects",
		RunE:  runProspectList,
	}
	listCmd.Flags().StringVar(&listStage, "stage", "", "filter by stage")
	prospectCmd.AddCommand(listCmd)
	rootCmd.AddCommand(prospectCmd)

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write runtime settings",
	}
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "get KEY",
		Short: "Show a setting",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettingsGet,
	})
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store a setting",
		Args:  cobra.ExactArgs(2),
		RunE:  runSettingsSet,
	})
	rootCmd.AddCommand(settingsCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.General.DatabasePath), 0755); err != nil {
		return nil, err
	}
	return store.New(cfg.General.DatabasePath)
}

// buildOrchestrator wires the closed agent set. The set is fixed at
// compile time; there is no runtime agent registration.
func buildOrchestrator(ctx context.Context, cfg *config.Config, st *store.Store) (*orchestrator.Orchestrator, error) {
	var completer llm.Completer
	gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey:       cfg.LLM.GeminiAPIKey,
		Model:        cfg.LLM.Model,
		RateLimitRPS: cfg.LLM.RateLimitRPS,
	})
	switch {
	case err == nil:
		completer = gemini
	case errors.Is(err, llm.ErrUnavailable):
		log.Printf("[serve] no LLM provider configured; generation tasks will fail terminally")
		completer = llm.Unconfigured{}
	default:
		return nil, err
	}

	sender := mailer.NewWebhookSender(cfg.Email.RelayURL, cfg.Email.From)
	if !sender.Ready() {
		log.Printf("[serve] no email relay configured; messages will be saved as drafts")
	}

	var notifiers []notify.Notifier
	if cfg.Notifications.Desktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier(true))
	}
	if cfg.Notifications.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notifications.SlackWebhook))
	}
	alerts := notify.NewMultiNotifier(notifiers...)

	orch := orchestrator.New(st, cfg.Scheduler.BatchSize)

	stages := agent.NewStageManager(st, alerts)
	orch.Bind(map[domain.AgentType]agent.Agent{
		domain.AgentOutreach:     agent.NewOutreach(st, completer, sender, stages),
		domain.AgentFollowUp:     agent.NewFollowUp(st, completer, sender, stages),
		domain.AgentClassifier:   agent.NewClassifier(st, completer, orch),
		domain.AgentStageManager: stages,
	})
	return orch, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch, err := buildOrchestrator(ctx, cfg, st)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(st, orch, scheduler.Config{
		DrainCron:     cfg.Scheduler.DrainCron,
		FollowUpCron:  cfg.Scheduler.FollowUpCron,
		CleanupCron:   cfg.Scheduler.CleanupCron,
		SnapshotCron:  cfg.Scheduler.SnapshotCron,
		RetentionDays: cfg.Scheduler.RetentionDays,
	})
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	server := api.NewServer(st, orch, sched, addr)
	orch.OnEvent = func(e orchestrator.Event) {
		server.Broadcast(api.SSEEvent{Type: e.Type, Data: api.EventData{
			TaskID:     e.TaskID,
			AgentType:  e.AgentType,
			ProspectID: e.ProspectID,
			Detail:     e.Detail,
		}})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[serve] scheduler running")
		err := sched.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Printf("[serve] API listening on %s", addr)
		err := server.Start()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		sched.Stop()
		return nil
	})

	return g.Wait()
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	taskCounts, err := st.CountTasksByStatus()
	if err != nil {
		return err
	}
	stageCounts, err := st.CountProspectsByStage()
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	bold.Println("Queue")
	fmt.Printf("  %d pending | %d processing | %s | %s\n",
		taskCounts[domain.TaskPending],
		taskCounts[domain.TaskProcessing],
		color.GreenString("%d completed", taskCounts[domain.TaskCompleted]),
		color.RedString("%d failed", taskCounts[domain.TaskFailed]))

	bold.Println("Pipeline")
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	for _, stage := range []domain.Stage{
		domain.StageNew, domain.StageContacted, domain.StageResponded,
		domain.StageMeetingScheduled, domain.StageProposalSent,
		domain.StageWon, domain.StageLost,
	} {
		fmt.Fprintf(w, "  %s\t%d\n", stage, stageCounts[stage])
	}
	w.Flush()

	settings, err := st.LoadSettings()
	if err != nil {
		return err
	}
	bold.Println("Automation")
	fmt.Printf("  outreach=%v classify=%v cadence=%v provider=%s\n",
		settings.AutoOutreach, settings.AutoClassify, settings.FollowUpDays, settings.LLMProvider)

	return nil
}

func runTrigger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	orch, err := buildOrchestrator(ctx, cfg, st)
	if err != nil {
		return err
	}
	sched, err := scheduler.New(st, orch, scheduler.Config{})
	if err != nil {
		return err
	}

	payload, err := domain.DecodePayload(domain.AgentType(triggerAgent), []byte(triggerPayload))
	if err != nil {
		return err
	}

	taskID, err := sched.TriggerAgent(ctx, domain.AgentType(triggerAgent), triggerProspect, payload)
	if err != nil {
		return err
	}

	task, err := st.GetTask(taskID)
	if err != nil {
		return err
	}
	fmt.Printf("Task %s: %s\n", taskID, task.Status)
	if task.Error != "" {
		fmt.Printf("  error: %s\n", task.Error)
	}
	if task.Result != "" {
		fmt.Printf("  result: %s\n", task.Result)
	}
	return nil
}

func runProspectAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	now := time.Now()
	p := &domain.Prospect{
		ID:                uuid.NewString(),
		Name:              args[0],
		Email:             addEmail,
		Company:           addCompany,
		Stage:             domain.StageNew,
		AutomationEnabled: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := st.CreateProspect(p); err != nil {
		return err
	}
	fmt.Printf("Added prospect %s (%s)\n", p.Name, p.ID)

	settings, err := st.LoadSettings()
	if err != nil {
		return err
	}
	if settings.AutoOutreach {
		orch, err := buildOrchestrator(cmd.Context(), cfg, st)
		if err != nil {
			return err
		}
		taskID, err := orch.Enqueue(domain.AgentOutreach, p.ID, domain.OutreachPayload{}, nil)
		if err != nil {
			return err
		}
		fmt.Printf("Queued outreach task %s\n", taskID)
	}
	return nil
}

func runProspectList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	prospects, err := st.ListProspects(store.ListProspectsOptions{Stage: domain.Stage(listStage)})
	if err != nil {
		return err
	}
	if len(prospects) == 0 {
		fmt.Println("No prospects")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCOMPANY\tSTAGE\tAUTOMATION\tUPDATED")
	for _, p := range prospects {
		automation := "on"
		if !p.AutomationEnabled {
			automation = color.YellowString("off")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.Name, p.Company, colorStage(p.Stage), automation, humanize.Time(p.UpdatedAt))
	}
	return w.Flush()
}

func colorStage(stage domain.Stage) string {
	switch stage {
	case domain.StageWon:
		return color.GreenString(string(stage))
	case domain.StageLost:
		return color.RedString(string(stage))
	case domain.StageMeetingScheduled, domain.StageProposalSent:
		return color.CyanString(string(stage))
	default:
		return string(stage)
	}
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	value, err := st.GetSetting(args[0], "")
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SetSetting(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", args[0], args[1])
	return nil
}
