package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aiwuxian/realm-chronicle/internal/models"
	"github.com/aiwuxian/realm-chronicle/internal/storage"
)

// FallbackStoryEvent LLM 不可用时的事件描述
const FallbackStoryEvent = "A mysterious event occurred."

// DefaultBranchChoices LLM 未配置或无内容时的选项
var DefaultBranchChoices = []string{"Explore ruins.", "Negotiate peace.", "Attack bandits."}

// StoryService 基于LLM的故事事件与分支选项
type StoryService struct {
	storage *storage.Storage
	llm     *LLMService
}

func NewStoryService(storage *storage.Storage, llm *LLMService) *StoryService {
	return &StoryService{
		storage: storage,
		llm:     llm,
	}
}

// WithLLM 返回使用另一个 LLM 的副本（请求级自定义配置）
func (ss *StoryService) WithLLM(llm *LLMService) *StoryService {
	return NewStoryService(ss.storage, llm)
}

// GenerateStoryEvent 生成并保存一条故事事件。LLM 失败时使用兜底描述。
func (ss *StoryService) GenerateStoryEvent(ctx context.Context, eventContext string) (*models.StoryEvent, error) {
	eventContext = strings.TrimSpace(eventContext)
	if eventContext == "" {
		return nil, invalidInput("生成故事事件", errors.New("上下文不能为空"))
	}

	description := FallbackStoryEvent
	if ss.llm.Enabled() {
		text, err := ss.llm.GenerateEventDescription(ctx, eventContext)
		switch {
		case err != nil:
			log.Printf("⚠️ 生成故事事件失败，使用默认描述: %v\n", err)
		case text != "":
			description = text
		}
	}

	ev := &models.StoryEvent{
		ID:          uuid.New().String(),
		Context:     eventContext,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := ss.storage.CreateStoryEvent(ctx, ev); err != nil {
		return nil, storeFailure("保存故事事件", err)
	}

	log.Printf("📖 [故事] %s: %s\n", ev.ID, ev.Description)
	return ev, nil
}

// GetStoryEvent 获取故事事件
func (ss *StoryService) GetStoryEvent(ctx context.Context, id string) (*models.StoryEvent, error) {
	ev, err := ss.storage.GetStoryEvent(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, invalidInput("获取故事事件", err)
	}
	if err != nil {
		return nil, storeFailure("获取故事事件", err)
	}
	return ev, nil
}

// ListStoryEvents 已生成的故事事件，最新在前
func (ss *StoryService) ListStoryEvents(ctx context.Context, limit int) ([]models.StoryEvent, error) {
	events, err := ss.storage.ListStoryEvents(ctx, limit)
	if err != nil {
		return nil, storeFailure("获取故事事件列表", err)
	}
	return events, nil
}

// BranchChoices 根据当前世界状态生成玩家选项
func (ss *StoryService) BranchChoices(ctx context.Context) ([]models.BranchChoice, error) {
	if !ss.llm.Enabled() {
		return toChoices(DefaultBranchChoices), nil
	}

	state, err := ss.storage.GetWorldState(ctx)
	if err != nil {
		return nil, storeFailure("获取世界状态", err)
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("序列化世界状态失败: %w", err)
	}

	text, err := ss.llm.GenerateBranchChoices(ctx, string(stateJSON))
	if err != nil {
		return nil, &Error{Kind: KindNarrator, Op: "生成分支选项", Err: err}
	}

	lines := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		lines = DefaultBranchChoices
	}

	return toChoices(lines), nil
}

func toChoices(lines []string) []models.BranchChoice {
	choices := make([]models.BranchChoice, len(lines))
	for i, line := range lines {
		choices[i] = models.BranchChoice{ID: i + 1, Description: line}
	}
	return choices
}
