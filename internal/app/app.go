package app

import (
	"context"
	"fmt"
	"log"

	"github.com/aiwuxian/realm-chronicle/internal/catalog"
	"github.com/aiwuxian/realm-chronicle/internal/models"
	"github.com/aiwuxian/realm-chronicle/internal/services"
	"github.com/aiwuxian/realm-chronicle/internal/storage"
)

// App 组装好的存储与服务，服务端和命令行共用
type App struct {
	Config  *models.Config
	Storage *storage.Storage
	Catalog *catalog.Catalog
	Phases  *services.PhaseMachine

	World *services.WorldService
	Story *services.StoryService
	Meta  *services.MetaService
}

// New 加载事件目录、打开数据库并写入初始数据。事件目录无效时返回 *catalog.ConfigError。
func New(ctx context.Context, cfg *models.Config) (*App, error) {
	phases, err := services.NewPhaseMachine(cfg.Game.Phases, cfg.Game.AllowPhaseRegression)
	if err != nil {
		return nil, fmt.Errorf("剧情阶段配置无效: %w", err)
	}

	cat, err := catalog.Load(cfg.Game.EventsPath, cfg.Game.StoryCyclesPath, phases.Names())
	if err != nil {
		return nil, err
	}
	log.Printf("📚 事件目录加载完成，共 %d 个模板\n", cat.Len())

	store, err := storage.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}

	if err := store.Seed(ctx, phases.Initial()); err != nil {
		store.Close()
		return nil, fmt.Errorf("初始化世界数据失败: %w", err)
	}

	llm := services.NewLLMService(cfg.LLM)
	if !llm.Enabled() {
		log.Println("⚠️ 未配置LLM，故事事件与分支选项使用默认内容")
	}

	return &App{
		Config:  cfg,
		Storage: store,
		Catalog: cat,
		Phases:  phases,
		World:   services.NewWorldService(store, cat, phases, services.NewRuleEngine(cfg.Game.Seed)),
		Story:   services.NewStoryService(store, llm),
		Meta:    services.NewMetaService(store),
	}, nil
}

func (a *App) Close() error {
	return a.Storage.Close()
}
