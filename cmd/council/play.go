package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"council/internal/action"
	"council/internal/actor"
	"council/internal/embedding"
	"council/internal/fragment"
	"council/internal/gate"
	"council/internal/llm"
	"council/internal/parse"
	"council/internal/prompt"
	"council/internal/router"
	"council/internal/transcript"
	"council/internal/turn"
	"council/internal/worldstate"
)

var (
	playDate    string
	playFaction string
	playTier    int
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start an interactive advisory session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd.Context())
	},
}

func init() {
	playCmd.Flags().StringVar(&playDate, "date", "", "campaign date (required)")
	playCmd.Flags().StringVar(&playFaction, "faction", "", "campaign faction slug (required)")
	playCmd.Flags().IntVar(&playTier, "tier", 1, "campaign tier (1-3)")
	_ = playCmd.MarkFlagRequired("date")
	_ = playCmd.MarkFlagRequired("faction")
}

func runPlay(ctx context.Context) error {
	if playTier < 1 || playTier > actor.NumTiers {
		return fmt.Errorf("tier must be between 1 and %d", actor.NumTiers)
	}

	if err := waitForBackend(ctx, cfg.Backend.BaseURL, 60*time.Second); err != nil {
		return err
	}

	registry, err := actor.Load(cfg.RosterDir, logger)
	if err != nil {
		return err
	}
	if registry.Len() == 0 {
		return fmt.Errorf("no advisors found in %s", cfg.RosterDir)
	}

	store, err := worldstate.Open(campaignDBPath(playFaction), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := embedding.NewEngine(cfg.Embedding, logger)
	if err != nil {
		return err
	}
	oracle := router.NewEmbeddingOracle(engine, logger)

	builder, err := prompt.NewBuilder(cfg.RulesPath, playTier, store, logger)
	if err != nil {
		return err
	}
	defer builder.Close()

	ledger, err := action.NewSQLiteLedger(store.DB())
	if err != nil {
		return err
	}

	controller := turn.New(turn.Config{
		Registry:   registry,
		Router:     router.New(registry, oracle, logger),
		Gate:       gate.New(logger),
		Fragments:  fragment.New(logger),
		Builder:    builder,
		Inference:  llm.NewClient(cfg.Backend.BaseURL, cfg.Backend.Model, cfg.Backend.TimeoutDuration(), logger),
		Parser:     parse.New(logger),
		Validator:  action.NewValidator(ledger, store, logger),
		Transcript: transcript.NewWriter(cfg.LogsDir, store, logger),
		Logger:     logger,
		Date:       playDate,
		Tier:       playTier,
	})

	logger.Info("session started",
		zap.String("session_id", controller.SessionID()),
		zap.String("date", playDate), zap.Int("tier", playTier))

	return repl(ctx, controller)
}

func repl(ctx context.Context, controller *turn.Controller) error {
	fmt.Println(systemStyle.Render("[Session open. 'quit' to leave, '/react <name>' for a reaction.]"))
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(promptStyle.Render("> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "quit" || query == "exit" {
			fmt.Println(systemStyle.Render("[Session closed.]"))
			return nil
		}

		if name, ok := strings.CutPrefix(query, "/react "); ok {
			out, err := controller.Spectate(ctx, strings.TrimSpace(name), "")
			if err != nil {
				fmt.Println(errorStyle.Render(err.Error()))
				continue
			}
			fmt.Println(systemStyle.Render(out))
			continue
		}

		out, err := controller.Turn(ctx, query)
		if err != nil {
			fmt.Println(errorStyle.Render("turn failed: " + err.Error()))
			continue
		}
		fmt.Println(renderTurn(out))
		fmt.Println()
	}
}

// renderTurn styles the speaker prefix on each output line.
func renderTurn(out string) string {
	blocks := strings.Split(out, "\n\n")
	for i, block := range blocks {
		if name, rest, ok := strings.Cut(block, ": "); ok && name == strings.ToUpper(name) && !strings.Contains(name, "\n") {
			blocks[i] = speakerStyle.Render(name+":") + " " + rest
		} else if strings.HasPrefix(block, "[") {
			blocks[i] = systemStyle.Render(block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// waitForBackend polls the backend until it answers or the deadline
// passes. The backend process itself is managed externally.
func waitForBackend(ctx context.Context, baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}

	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			strings.TrimRight(baseURL, "/")+"/v1/models", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 500 {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return fmt.Errorf("inference backend at %s not ready after %s", baseURL, timeout)
}

func campaignDBPath(faction string) string {
	return filepath.Join(cfg.CampaignDir, faction, "campaign.db")
}
