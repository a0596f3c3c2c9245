package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/aiwuxian/realm-chronicle/internal/models"
)

const defaultLLMModel = "gpt-4o-mini"

const storyEventPrompt = "Generate a medieval fantasy story event based on: %s. Keep it concise, under 100 words."

const branchChoicesPrompt = "Based on this world state: %s. Generate 3 concise player decision options (each under 20 words) for the next story event. Return one option per line, no numbering."

// LLMService OpenAI 兼容接口的叙事生成。未配置 API Key 时不可用，调用方使用兜底内容。
type LLMService struct {
	client *openai.Client
	config models.LLMConfig
}

func NewLLMService(config models.LLMConfig) *LLMService {
	if config.Model == "" {
		config.Model = defaultLLMModel
	}
	if config.APIKey == "" {
		return &LLMService{config: config}
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.APIBase != "" {
		clientConfig.BaseURL = config.APIBase
	}

	return &LLMService{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Enabled 是否已配置
func (ls *LLMService) Enabled() bool {
	return ls != nil && ls.client != nil
}

// GenerateEventDescription 根据上下文生成一段故事事件
func (ls *LLMService) GenerateEventDescription(ctx context.Context, eventContext string) (string, error) {
	return ls.chat(ctx, fmt.Sprintf(storyEventPrompt, eventContext))
}

// GenerateBranchChoices 根据世界状态生成若干选项（每行一个）
func (ls *LLMService) GenerateBranchChoices(ctx context.Context, worldStateJSON string) (string, error) {
	return ls.chat(ctx, fmt.Sprintf(branchChoicesPrompt, worldStateJSON))
}

func (ls *LLMService) chat(ctx context.Context, prompt string) (string, error) {
	if !ls.Enabled() {
		return "", errors.New("未配置LLM")
	}

	resp, err := ls.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: ls.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: ls.config.Temperature,
		MaxTokens:   ls.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("调用LLM失败: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("LLM没有返回内容")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
