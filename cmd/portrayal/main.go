package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zhalslar/portrayal-go/internal/analyzer"
	"github.com/zhalslar/portrayal-go/internal/bot"
	"github.com/zhalslar/portrayal-go/internal/config"
	"github.com/zhalslar/portrayal-go/internal/history"
	"github.com/zhalslar/portrayal-go/internal/llm"
	"github.com/zhalslar/portrayal-go/internal/logger"
	"github.com/zhalslar/portrayal-go/internal/onebot"
	"github.com/zhalslar/portrayal-go/internal/profile"
	"github.com/zhalslar/portrayal-go/internal/render"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "portrayal",
		Short:         "群友性格画像 bot：爬取群聊记录，交给 LLM 生成画像图片",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				os.Setenv("CONFIG_PATH", configPath)
			}
			return run()
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml")

	if err := rootCmd.Execute(); err != nil {
		logger.L.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.Log.Level)

	registry, err := llm.NewRegistry(cfg.LLM)
	if err != nil {
		return err
	}

	client := onebot.NewClient(cfg.OneBot.APIBase, cfg.OneBot.AccessToken)

	handler := &bot.Handler{
		Command:       cfg.Portrayal.Command,
		DefaultRounds: cfg.Portrayal.MaxQueryRounds,
		Fetcher: &history.Fetcher{
			API:         client,
			TargetCount: cfg.Portrayal.MaxMsgCount,
			PageSize:    cfg.Portrayal.PerMsgCount,
			Timestamps:  cfg.Portrayal.TimestampContexts,
		},
		Resolver: &profile.Resolver{API: client},
		Analyzer: &analyzer.Analyzer{
			Registry:           registry,
			SpecificProviderID: cfg.LLM.SpecificProviderID,
			PromptTemplate:     cfg.Portrayal.SystemPromptTemplate,
			MaxRetries:         cfg.Portrayal.LLMMaxRetries,
			RetryDelay:         cfg.Portrayal.RetryDelay(),
		},
		Renderer: render.NewRenderer(cfg.Render),
		Sender:   client,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream := &onebot.Stream{URL: cfg.OneBot.WSURL, AccessToken: cfg.OneBot.AccessToken}
	if err := stream.Run(ctx, handler.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.L.Info("shutting down")
	return nil
}
