package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/contentplan-agent/internal/cache"
	"github.com/contentplan-agent/internal/config"
	"github.com/contentplan-agent/internal/generation"
	"github.com/contentplan-agent/internal/models"
	"github.com/contentplan-agent/internal/repository"
	"github.com/contentplan-agent/internal/scheduler"
	"github.com/contentplan-agent/internal/transport"
	"github.com/contentplan-agent/pkg/logger"
	"github.com/contentplan-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	store   cache.Store
	limiter *ratelimit.MultiLimiter
	repo    *repository.Repository
	scope   models.Scope
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "contentplan-agent",
		Short: "Content-plan sync agent powered by AI",
		Long: `A client-side synchronization agent for a content-planning service:
cached item and persona collections, optimistic edits, AI or webhook
content generation, and drag-and-drop scheduling.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(itemsCmd())
	rootCmd.AddCommand(personasCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(prefsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	// Initialize the device-local cache; fall back to in-memory when the
	// on-disk store cannot be opened
	sqliteStore, err := cache.NewSqlite(cfg.Cache.DSN, cfg.Cache.TTL, log)
	if err != nil {
		log.Warn().Err(err).Msg("Falling back to in-memory cache")
		store = cache.NewMemory(cfg.Cache.TTL)
	} else {
		store = sqliteStore
	}

	// Initialize the resilient executor and repository
	limiter = ratelimit.NewDefaultLimiter()
	exec := transport.NewExecutor(limiter, ratelimit.LimiterAPI, log,
		transport.WithTimeout(cfg.Executor.Timeout),
		transport.WithBackoff(cfg.Executor.Backoff),
	)
	repo = repository.New(exec, store, cfg.API.BaseURL, log,
		repository.WithRetries(cfg.Executor.Retries),
	)

	scope = models.Scope{UserID: cfg.API.UserID, TeamID: cfg.API.TeamID}

	return nil
}

func authToken() string {
	return cfg.API.AuthToken
}

// buildPipeline wires the dual-path generation pipeline over the shared
// limiter registry
func buildPipeline() *generation.Pipeline {
	webhookExec := transport.NewExecutor(limiter, ratelimit.LimiterWebhook, log,
		transport.WithTimeout(cfg.Executor.Timeout),
	)
	webhook := generation.NewWebhookStrategy(webhookExec, log)
	claude := generation.NewClaudeStrategy(cfg.Anthropic, limiter, log)
	return generation.NewPipeline(repo, webhook, claude, repo, log)
}

// ============ ITEM COMMANDS ============

func itemsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Content item commands",
	}

	cmd.AddCommand(itemsListCmd())
	cmd.AddCommand(itemsCreateCmd())
	cmd.AddCommand(itemsDeleteCmd())
	return cmd
}

func itemsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the scoped item collection (cache-first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := repo.ListItems(context.Background(), scope, authToken())
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Items (%d) ===\n", len(items))
			for _, item := range items {
				when := "backlog"
				if item.Date != nil {
					when = *item.Date + " " + item.TimeOrDefault()
				}
				fmt.Printf("%-36s  %-12s  %-16s  %s\n", item.ID, item.Status, when, item.Title)
			}
			return nil
		},
	}
}

func itemsCreateCmd() *cobra.Command {
	var title, description, platforms string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new backlog item",
		RunE: func(cmd *cobra.Command, args []string) error {
			item := models.Item{
				ID:          uuid.NewString(),
				Title:       title,
				Description: description,
				Status:      models.ItemStatusPending,
			}
			if platforms != "" {
				item.Platforms = splitFlagList(platforms)
			}

			if err := repo.CreateItem(context.Background(), item, scope, authToken()); err != nil {
				return err
			}
			fmt.Printf("Created item %s\n", item.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Item title")
	cmd.Flags().StringVar(&description, "description", "", "Item description")
	cmd.Flags().StringVar(&platforms, "platforms", "", "Comma-separated target platforms")
	cmd.MarkFlagRequired("title")
	return cmd
}

func itemsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := repo.DeleteItem(context.Background(), args[0], scope, authToken()); err != nil {
				return err
			}
			fmt.Printf("Deleted item %s\n", args[0])
			return nil
		},
	}
}

// ============ PERSONA COMMANDS ============

func personasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "Audience persona commands",
	}

	cmd.AddCommand(personasListCmd())
	cmd.AddCommand(personasCreateCmd())
	cmd.AddCommand(personasDeleteCmd())
	return cmd
}

func personasListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the scoped persona collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			personas, err := repo.ListPersonas(context.Background(), scope, authToken())
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Personas (%d) ===\n", len(personas))
			for _, persona := range personas {
				fmt.Printf("%-36s  %-24s  pains=%d goals=%d questions=%d\n",
					persona.ID, persona.Name, len(persona.Pains), len(persona.Goals), len(persona.Questions))
			}
			return nil
		},
	}
}

func personasCreateCmd() *cobra.Command {
	var name, demographics, pains, goals, questions string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new audience persona",
		RunE: func(cmd *cobra.Command, args []string) error {
			persona := models.Persona{
				ID:           uuid.NewString(),
				Name:         name,
				Demographics: demographics,
				Pains:        splitFlagList(pains),
				Goals:        splitFlagList(goals),
				Questions:    splitFlagList(questions),
			}

			if err := repo.CreatePersona(context.Background(), persona, scope, authToken()); err != nil {
				return err
			}
			fmt.Printf("Created persona %s\n", persona.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Persona display name")
	cmd.Flags().StringVar(&demographics, "demographics", "", "Free-text demographic description")
	cmd.Flags().StringVar(&pains, "pains", "", "Comma-separated pain statements")
	cmd.Flags().StringVar(&goals, "goals", "", "Comma-separated goal statements")
	cmd.Flags().StringVar(&questions, "questions", "", "Comma-separated open questions")
	cmd.MarkFlagRequired("name")
	return cmd
}

func personasDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := repo.DeletePersona(context.Background(), args[0], scope, authToken()); err != nil {
				return err
			}
			fmt.Printf("Deleted persona %s\n", args[0])
			return nil
		},
	}
}

// ============ GENERATION COMMAND ============

func generateCmd() *cobra.Command {
	var topic, audience, tone, personaID string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a batch of content ideas",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			req := models.GenerationRequest{
				Topic:      topic,
				Audience:   audience,
				Tone:       models.Tone(tone),
				PersonaID:  personaID,
				Language:   cfg.Generation.Language,
				BrandVoice: cfg.Generation.BrandVoice,
				WebhookURL: cfg.Generation.WebhookURL,
			}
			if !req.Tone.Valid() {
				return fmt.Errorf("unknown tone %q", tone)
			}

			// An empty persona carries no targeting signal; confirm before
			// spending a generation run on it
			if personaID != "" {
				persona, err := repo.GetPersona(ctx, personaID, scope, authToken())
				if err != nil {
					return err
				}
				if persona.IsEmpty() && !confirm(fmt.Sprintf("Persona %q has no targeting details. Generate anyway?", persona.Name)) {
					return nil
				}
			}

			items, err := buildPipeline().Generate(ctx, req, scope, authToken())
			if err != nil {
				if generation.IsFormatError(err) {
					return fmt.Errorf("the generation backend returned an unusable response, try again: %w", err)
				}
				return err
			}

			fmt.Printf("\n=== Generated %d ideas ===\n", len(items))
			for _, item := range items {
				fmt.Printf("%-36s  %s\n", item.ID, item.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Topic to generate ideas for")
	cmd.Flags().StringVar(&audience, "audience", "", "Audience description")
	cmd.Flags().StringVar(&tone, "tone", string(models.ToneProfessional), "Tone: professional, witty, inspirational, educational")
	cmd.Flags().StringVar(&personaID, "persona", "", "Persona id to bias generation")
	cmd.MarkFlagRequired("topic")
	return cmd
}

// ============ SCHEDULE COMMAND ============

func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <item-id> <target>",
		Short: "Move an item to a calendar day (YYYY-MM-DD) or to 'backlog'",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			items, err := repo.ListItems(ctx, scope, authToken())
			if err != nil {
				return err
			}

			board := scheduler.New(repo, scope, log)
			board.Load(items)
			board.Lift(args[0])
			if err := board.Drop(ctx, args[1], authToken()); err != nil {
				return fmt.Errorf("move applied locally but not saved remotely: %w", err)
			}

			fmt.Printf("Moved %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

// ============ PREFERENCE COMMANDS ============

func prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Notification preference commands",
	}

	cmd.AddCommand(prefsGetCmd())
	cmd.AddCommand(prefsSetCmd())
	return cmd
}

func prefsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show notification preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := repo.GetPreferences(context.Background(), cfg.API.UserID, authToken())
			if err != nil {
				return err
			}
			fmt.Printf("notify_on_item_due:  %v\n", prefs.NotifyOnItemDue)
			fmt.Printf("due_threshold_hours: %d\n", prefs.DueThresholdHours)
			return nil
		},
	}
}

func prefsSetCmd() *cobra.Command {
	var enabled string
	var threshold int

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update notification preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			prefs, err := repo.GetPreferences(ctx, cfg.API.UserID, authToken())
			if err != nil {
				return err
			}
			if enabled != "" {
				on, err := strconv.ParseBool(enabled)
				if err != nil {
					return fmt.Errorf("invalid --enabled value: %w", err)
				}
				prefs.NotifyOnItemDue = on
			}
			if threshold > 0 {
				prefs.DueThresholdHours = threshold
			}

			if err := repo.SavePreferences(ctx, cfg.API.UserID, prefs, authToken()); err != nil {
				return err
			}
			fmt.Println("Preferences saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&enabled, "enabled", "", "Enable item-due notifications (true/false)")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "Lead time in hours (1-72)")
	return cmd
}

// ============ HELPERS ============

func splitFlagList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
