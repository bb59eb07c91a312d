package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	orchestratorx "github.com/napat-k/Aftersale-Support-Agent/agent/agents/orchestrator"
	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	intentx "github.com/napat-k/Aftersale-Support-Agent/agent/intent"
	memoryx "github.com/napat-k/Aftersale-Support-Agent/agent/memory"
	promptx "github.com/napat-k/Aftersale-Support-Agent/agent/prompt"
	statex "github.com/napat-k/Aftersale-Support-Agent/agent/state"
	toolx "github.com/napat-k/Aftersale-Support-Agent/agent/tool"
	verifyx "github.com/napat-k/Aftersale-Support-Agent/agent/verify"
	configx "github.com/napat-k/Aftersale-Support-Agent/pkg/config"
	crmx "github.com/napat-k/Aftersale-Support-Agent/pkg/crm"
	handoffx "github.com/napat-k/Aftersale-Support-Agent/pkg/handoff"
	knowledgex "github.com/napat-k/Aftersale-Support-Agent/pkg/knowledge"
	_ "github.com/napat-k/Aftersale-Support-Agent/pkg/logger/autoload"
	openrouterx "github.com/napat-k/Aftersale-Support-Agent/pkg/openrouter"
	upstashx "github.com/napat-k/Aftersale-Support-Agent/pkg/upstash"
)

type AppConfig struct {
	SessionBackend      string  `envconfig:"SESSION_BACKEND" default:"memory"`
	CRMBackend          string  `envconfig:"CRM_BACKEND" default:"memory"`
	HandoffEnabled      bool    `envconfig:"HANDOFF_ENABLED" default:"false"`
	ConfidenceThreshold float64 `envconfig:"CONFIDENCE_THRESHOLD" default:"0.6"`
	DefaultUserID       string  `envconfig:"DEFAULT_USER_ID" default:"CUST001"`
}

func main() {
	ctx := context.Background()
	appCfg := configx.MustNew[AppConfig]("")

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")

	sessionStore, memoryStore := buildStores(appCfg)
	sessions, err := statex.NewManager(sessionStore)
	if err != nil {
		panic(err)
	}

	crm := buildCRM(appCfg)
	verifier, err := verifyx.New(crm)
	if err != nil {
		panic(err)
	}

	embedFunc, err := openrouterx.NewEmbeddingFunc(*openRouterCfg)
	if err != nil {
		panic(err)
	}
	searcher, err := knowledgex.New(ctx, embedFunc)
	if err != nil {
		panic(err)
	}

	gateway, err := toolx.NewGateway(toolx.Collaborators{
		CRM:       crm,
		Knowledge: searcher,
		Memory:    memoryStore,
	})
	if err != nil {
		panic(err)
	}

	chatModel, err := openRouterCfg.New(ctx)
	if err != nil {
		panic(err)
	}
	prompts := promptx.LoadPromptSet()
	classifier, err := intentx.NewLLMClassifier(ctx, chatModel, prompts.Classifier, appCfg.ConfidenceThreshold)
	if err != nil {
		panic(err)
	}

	var notifier contractx.HandoffNotifier
	if appCfg.HandoffEnabled {
		notifier = handoffx.MustNew(*configx.MustNew[handoffx.Config]("HANDOFF"))
	}

	agent, err := orchestratorx.New(sessions, classifier, gateway, verifier, memoryStore, notifier, orchestratorx.Config{})
	if err != nil {
		panic(err)
	}

	runChatLoop(ctx, agent, appCfg.DefaultUserID)
}

func buildStores(cfg *AppConfig) (statex.Store, contractx.MemoryStore) {
	if strings.EqualFold(cfg.SessionBackend, "redis") {
		client, err := upstashx.New(*configx.MustNew[upstashx.Config]("UPSTASH"))
		if err != nil {
			panic(err)
		}
		sessionStore, err := statex.NewRedisStore(client)
		if err != nil {
			panic(err)
		}
		memoryStore, err := memoryx.NewRedisStore(client)
		if err != nil {
			panic(err)
		}
		return sessionStore, memoryStore
	}
	return statex.NewInMemoryStore(), memoryx.NewInMemoryStore()
}

func buildCRM(cfg *AppConfig) contractx.CRM {
	if strings.EqualFold(cfg.CRMBackend, "postgres") {
		crm, err := crmx.NewPostgres(*configx.MustNew[crmx.PostgresConfig]("CRM"))
		if err != nil {
			panic(err)
		}
		return crm
	}
	return crmx.NewInMemory()
}

func runChatLoop(ctx context.Context, agent *orchestratorx.Orchestrator, userID string) {
	sessionID := uuid.NewString()
	fmt.Printf("After-sale support agent ready (session %s). Type 'exit' to quit.\n", sessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "exit") {
			return
		}

		reply, err := agent.HandleTurn(ctx, sessionID, userID, text)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			fmt.Println("Sorry, something went wrong on our side.")
			continue
		}
		fmt.Println(reply.Text)
	}
}
