// Command support runs an interactive terminal session against an agent
// definition directory. It is the smallest complete wiring of the engine:
// model, definitions, checkpoints, transcript store, session service.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"

	"github.com/tbxark/fieldagent/checkpoint"
	"github.com/tbxark/fieldagent/config"
	"github.com/tbxark/fieldagent/definition"
	"github.com/tbxark/fieldagent/engine"
	"github.com/tbxark/fieldagent/logx"
	"github.com/tbxark/fieldagent/session"
	"github.com/tbxark/fieldagent/storage"
)

type Config struct {
	// OpenAI-compatible model endpoint. With no APIKey the engine runs in
	// deterministic keyword-only mode, which is enough to try the flow.
	APIKey  string `envconfig:"API_KEY"`
	BaseURL string `envconfig:"BASE_URL"`
	Model   string `envconfig:"MODEL" default:"gpt-4o-mini"`

	AgentDir string `envconfig:"AGENT_DIR" default:"agents"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// UseRedis switches checkpoints from memory to redis.
	UseRedis bool `envconfig:"USE_REDIS"`
	Redis    checkpoint.RedisConfig
	Storage  storage.Config
}

func main() {
	agentID := flag.String("agent", "", "agent id to run, defaults to the first registered")
	voice := flag.Bool("voice", false, "render replies for voice output")
	flag.Parse()

	cfg := config.MustNew[Config]("FIELDAGENT")
	logger := logx.New(logx.Options{Level: cfg.LogLevel, Pretty: true})
	if err := run(context.Background(), cfg, logger, *agentID, *voice); err != nil {
		logger.Fatal().Err(err).Msg("session ended with error")
	}
}

func run(ctx context.Context, cfg *Config, logger zerolog.Logger, agentID string, voice bool) error {
	registry := definition.NewRegistry()
	if err := registry.LoadDir(cfg.AgentDir); err != nil {
		return err
	}
	ids := registry.IDs()
	if len(ids) == 0 {
		return fmt.Errorf("no agent definitions in %s", cfg.AgentDir)
	}
	if agentID == "" {
		agentID = ids[0]
	}

	var chatModel model.ToolCallingChatModel
	if cfg.APIKey != "" {
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
		if err != nil {
			return err
		}
		chatModel = cm
	} else {
		logger.Warn().Msg("no API key configured, running keyword-only")
	}

	eng, err := engine.New(engine.Options{
		ChatModel:        chatModel,
		ModelTimeout:     30 * time.Second,
		RephraseDialogue: chatModel != nil,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	var checkpoints checkpoint.Store = checkpoint.NewMemoryStore()
	if cfg.UseRedis {
		client, err := checkpoint.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		checkpoints = checkpoint.NewRedisStore(client, cfg.Redis)
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return err
	}

	svc, err := session.New(session.Options{
		Engine:      eng,
		Definitions: registry,
		Checkpoints: checkpoints,
		Store:       store,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	started, err := svc.Start(ctx, agentID, voice)
	if err != nil {
		return err
	}
	fmt.Printf("agent: %s\n\n%s\n", started.Reply, prompt())

	reader := bufio.NewScanner(os.Stdin)
	for reader.Scan() {
		input := strings.TrimSpace(reader.Text())
		if input == "" {
			fmt.Print(prompt())
			continue
		}
		result, err := svc.Message(ctx, started.SessionID, input)
		if err != nil {
			return err
		}
		fmt.Printf("agent: %s\n", result.Reply)
		if result.Completed || result.Cancelled {
			if result.ActionResult != "" {
				fmt.Printf("action: %s\n", result.ActionResult)
			}
			return nil
		}
		fmt.Print(prompt())
	}
	return reader.Err()
}

func prompt() string {
	return "you: "
}
