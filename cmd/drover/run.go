package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/drover-dev/drover/pkg/agent"
	"github.com/drover-dev/drover/pkg/config"
	"github.com/drover-dev/drover/pkg/history"
	"github.com/drover-dev/drover/pkg/llm"
	"github.com/drover-dev/drover/pkg/logger"
	"github.com/drover-dev/drover/pkg/prompt"
	"github.com/drover-dev/drover/pkg/tools"
)

type runOptions struct {
	configPath   string
	sessionID    string
	listSessions bool
	oneShot      string
	workDir      string
	debug        bool
}

func run(opts runOptions) error {
	configPath := opts.configPath
	if configPath == "" {
		var err error
		configPath, err = config.GetDefaultConfigPath()
		if err != nil {
			return err
		}
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := cfg.Log.CreateLogger()
	if err != nil {
		return err
	}
	defer log.Close()
	if opts.debug {
		log.SetLevel(logger.DEBUG)
	}

	storeDir, err := history.DefaultDir()
	if err != nil {
		return err
	}
	store := history.NewStore(storeDir)

	if opts.listSessions {
		return printSessions(store)
	}

	hist, err := openHistory(store, opts.sessionID)
	if err != nil {
		return err
	}

	apiKey, err := config.ResolveAPIKey(cfg.Model.Provider)
	if err != nil {
		return err
	}
	client := llm.NewClient(cfg.GetLLMModel(), apiKey, log)

	shellCfg := cfg.GetShellConfig(log)
	if opts.workDir != "" {
		shellCfg.WorkDir = opts.workDir
	}

	registry := tools.NewRegistry()
	registry.Register(tools.NewShellTool(shellCfg))
	registry.Register(tools.NewReadTool(shellCfg.WorkDir))
	registry.Register(tools.NewWriteTool(shellCfg.WorkDir))
	registry.Register(tools.NewEditTool(shellCfg.WorkDir))
	registry.Register(tools.NewGrepTool(shellCfg.WorkDir))

	systemPrompt := prompt.NewBuilder("", shellCfg.WorkDir).
		SetTools(toolInfos(registry)).
		Build()

	agentCfg := agent.Config{
		ModelID:      cfg.Model.ID,
		SystemPrompt: systemPrompt,
		Logger:       log,
	}
	if cfg.Agent != nil {
		agentCfg.MaxIterations = cfg.Agent.MaxIterations
		agentCfg.MaxRetries = cfg.Agent.MaxRetries
	}

	a := agent.New(client, registry, agentCfg)
	defer a.Close()
	a.RestoreMessages(hist.Messages())
	a.SetEvents(agent.Events{
		OnAssistantText: func(text string) {
			fmt.Println(text)
		},
		OnToolCall: func(name string, args map[string]any) {
			fmt.Printf("[%s] %v\n", name, args)
		},
		OnToolResult: func(name, text string, isError bool) {
			if isError {
				fmt.Printf("[%s error] %s\n", name, text)
			}
		},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if opts.oneShot != "" {
		return runOnce(ctx, a, hist, opts.oneShot)
	}
	return runREPL(ctx, a, hist)
}

func runOnce(ctx context.Context, a *agent.Agent, hist *history.History, input string) error {
	_, err := a.Run(ctx, input)
	hist.SetMessages(a.Messages())
	if flushErr := hist.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	return err
}

func runREPL(ctx context.Context, a *agent.Agent, hist *history.History) error {
	fmt.Printf("drover session %s (type 'exit' to quit)\n", hist.ID())
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		if _, err := a.Run(ctx, input); err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		hist.SetMessages(a.Messages())
		if err := hist.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to persist session: %v\n", err)
		}
	}
	return scanner.Err()
}

func openHistory(store *history.Store, sessionID string) (*history.History, error) {
	switch sessionID {
	case "":
		return store.Create()
	case "latest":
		hist, err := store.Latest()
		if err != nil {
			return nil, err
		}
		if hist == nil {
			return store.Create()
		}
		return hist, nil
	default:
		return store.Open(sessionID)
	}
}

func printSessions(store *history.Store) error {
	metas, err := store.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("no stored sessions")
		return nil
	}
	for _, meta := range metas {
		fmt.Printf("%s  %s\n", meta.ID, meta.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func toolInfos(registry *tools.Registry) []prompt.ToolInfo {
	all := registry.All()
	infos := make([]prompt.ToolInfo, 0, len(all))
	for _, tool := range all {
		infos = append(infos, tool)
	}
	return infos
}
