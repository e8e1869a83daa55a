// Package main boots the companion service and wires application dependencies.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/genai"

	internalagent "github.com/velvetlabs/amora/internal/agent"
	"github.com/velvetlabs/amora/internal/channel"
	"github.com/velvetlabs/amora/internal/config"
	"github.com/velvetlabs/amora/internal/emotion"
	"github.com/velvetlabs/amora/internal/engine"
	"github.com/velvetlabs/amora/internal/handler"
	"github.com/velvetlabs/amora/internal/memory"
	"github.com/velvetlabs/amora/internal/models"
	"github.com/velvetlabs/amora/internal/mood"
	"github.com/velvetlabs/amora/internal/repository"
	"github.com/velvetlabs/amora/internal/scheduler"
	"github.com/velvetlabs/amora/internal/storage"
)

const extractEveryMessages = 20

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	slog.Info("configuration loaded", "chat_model", cfg.ChatModel, "image_model", cfg.ImageModel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	chatModel, err := models.NewOpenAIModel(ctx, cfg.ChatModel, &genai.ClientConfig{
		APIKey: cfg.OpenAIAPIKey,
	})
	if err != nil {
		log.Fatalf("failed to create chat model: %v", err)
	}

	companion, err := internalagent.NewCompanion(chatModel)
	if err != nil {
		log.Fatalf("failed to create companion: %v", err)
	}

	heuristic, err := emotion.NewHeuristicClassifier()
	if err != nil {
		log.Fatalf("failed to build emotion classifier: %v", err)
	}
	classifier := emotion.NewAnalyzer(chatModel, heuristic)

	ledger := storage.NewXPLedger(store.Sessions)
	moods := mood.NewService(0, store.Sessions, ledger)

	sched := scheduler.NewService(store.History, store.Sessions, storage.NewRetentionAdapter(store.Retention))

	eng := engine.New(engine.Config{
		Classifier: classifier,
		Moods:      moods,
		Scheduler:  sched,
		Retention:  store.Retention,
		Facts:      store.Facts,
		History:    store.History,
		MaxTokens:  cfg.MaxContextTokens,
	})

	var embedder memory.Embedder
	var photos channel.PhotoSource
	if cfg.GoogleAPIKey != "" {
		genaiEmbedder, err := memory.NewEmbedder(ctx, cfg.GoogleAPIKey, "")
		if err != nil {
			log.Fatalf("failed to create embedder: %v", err)
		}
		embedder = genaiEmbedder

		imageGen, err := models.NewImageGenerator(ctx, cfg.GoogleAPIKey, cfg.ImageModel, cfg.AspectRatio)
		if err != nil {
			log.Fatalf("failed to create image generator: %v", err)
		}
		photos = imageGen
	} else {
		slog.Warn("GOOGLE_API_KEY not set, fact embeddings and proactive photos disabled")
	}
	memories := memory.NewService(embedder, memory.NewExtractor(chatModel), store.Facts, store.History, 5, 0.7)

	status := handler.NewStatus(eng, moods, ledger)

	inbound := func(ctx context.Context, userID int64, text string) (string, error) {
		if handler.IsStatusCommand(text) {
			return status.Render(ctx, userID), nil
		}

		result, err := eng.HandleMessage(ctx, userID, text)
		if err != nil {
			return "", err
		}

		systemPrompt := internalagent.PersonaPrompt(cfg.SystemPrompt, result.Retention.Stage, result.StageChanged, result.StreakMessage)
		window, err := eng.BuildContext(ctx, userID, systemPrompt, text, cfg.NSFW)
		if err != nil {
			return "", err
		}

		reply, err := companion.Reply(ctx, window.Messages)
		if err != nil {
			return "", err
		}
		eng.RecordReply(ctx, userID, reply)

		if result.Retention.MessageCount%extractEveryMessages == 0 {
			go func() {
				turns, err := store.History.RecentMessages(context.Background(), userID, cfg.HistoryLimit)
				if err != nil {
					slog.Warn("fact extraction skipped", "user_id", userID, "error", err.Error())
					return
				}
				stored := memories.ExtractAndStore(context.Background(), userID, turns)
				if stored > 0 {
					slog.Info("facts extracted", "user_id", userID, "count", stored)
				}
			}()
		}
		return reply, nil
	}

	tg, err := channel.NewTelegramChannel(cfg.TelegramToken, inbound, photos)
	if err != nil {
		log.Fatalf("failed to create telegram channel: %v", err)
	}
	if err := tg.Start(ctx); err != nil {
		log.Fatalf("failed to start telegram channel: %v", err)
	}
	defer tg.Stop()

	sweeper := scheduler.NewSweeper(sched, activeUsers{repo: store.Retention, days: cfg.ActiveUserDays}, tg, cfg.SweepSpec)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("failed to start sweeper: %v", err)
	}

	<-ctx.Done()
	slog.Info("shutting down")
}

// activeUsers adapts the retention repo to the sweeper's UserLister.
type activeUsers struct {
	repo *repository.RetentionRepo
	days int
}

func (a activeUsers) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	return a.repo.ActiveUserIDs(ctx, a.days)
}
