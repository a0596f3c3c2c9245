// Package config 读取 config.yml 与环境变量，环境变量优先
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/aiwuxian/realm-chronicle/internal/models"
	"github.com/aiwuxian/realm-chronicle/internal/services"
)

const (
	DefaultPath        = "config.yml"
	DefaultServiceName = "realm-chronicle"
)

// Default 没有配置文件时使用的默认配置
func Default() *models.Config {
	return &models.Config{
		Server: models.ServerConfig{
			Host: "127.0.0.1",
			Port: "8080",
		},
		Database: models.DatabaseConfig{
			Path:         "data/world.db",
			QueryTimeout: 5 * time.Second,
		},
		LLM: models.LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.8,
			MaxTokens:   300,
		},
		Game: models.GameConfig{
			EventsPath:      "data/events.yml",
			StoryCyclesPath: "data/story_cycles.yml",
			Phases:          services.DefaultPhases(),
		},
		Telemetry: models.TelemetryConfig{
			ServiceName: DefaultServiceName,
		},
	}
}

// Load 在默认配置上叠加配置文件，再应用环境变量。配置文件不存在不算错误。
func Load(path string) (*models.Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	if len(cfg.Game.Phases) == 0 {
		cfg.Game.Phases = services.DefaultPhases()
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
	return cfg, nil
}
