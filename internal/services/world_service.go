package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aiwuxian/realm-chronicle/internal/catalog"
	"github.com/aiwuxian/realm-chronicle/internal/models"
	"github.com/aiwuxian/realm-chronicle/internal/storage"
)

const (
	// QuietNarrative 当前阶段没有可用事件时的叙事
	QuietNarrative = "The kingdom is quiet for now..."
	// SystemActor 系统事件的行动者
	SystemActor = "System"
	// unknownFaction 没有任何势力时 {faction} 的替换文本
	unknownFaction = "a nameless band"
)

const tracerName = "github.com/aiwuxian/realm-chronicle/internal/services"

// WorldService 世界推进引擎：执行行动、推进张力与阶段、生成事件
type WorldService struct {
	storage *storage.Storage
	catalog *catalog.Catalog
	phases  *PhaseMachine
	rules   *RuleEngine
	tracer  trace.Tracer
}

func NewWorldService(storage *storage.Storage, catalog *catalog.Catalog,
	phases *PhaseMachine, rules *RuleEngine) *WorldService {
	return &WorldService{
		storage: storage,
		catalog: catalog,
		phases:  phases,
		rules:   rules,
		tracer:  otel.Tracer(tracerName),
	}
}

// ApplyAction 执行玩家行动并推进世界。整个过程在一个事务中完成，失败时不留下任何修改。
func (ws *WorldService) ApplyAction(ctx context.Context, action Action) (*models.EventResponse, error) {
	ctx, span := ws.tracer.Start(ctx, "WorldService.ApplyAction", trace.WithAttributes(
		attribute.String("realm.action", action.Kind.String()),
		attribute.Int("realm.target", action.Target),
		attribute.Int("realm.magnitude", action.Magnitude),
	))
	defer span.End()

	action, err := action.normalize()
	if err != nil {
		return nil, ws.fail(span, err)
	}

	var resp *models.EventResponse
	err = ws.storage.Update(ctx, func(tx *storage.Tx) error {
		if err := ws.applyAction(ctx, tx, action); err != nil {
			return err
		}
		if err := ws.advance(ctx, tx); err != nil {
			return err
		}
		var err error
		resp, err = ws.generateEvents(ctx, tx)
		return err
	})
	if err != nil {
		log.Printf("❌ [行动] %s -> %d 失败: %v\n", action.Kind, action.Target, err)
		return nil, ws.fail(span, storeFailure("应用行动", err))
	}

	return resp, nil
}

// CheckEvents 不执行行动，仅按当前阶段生成事件
func (ws *WorldService) CheckEvents(ctx context.Context) (*models.EventResponse, error) {
	ctx, span := ws.tracer.Start(ctx, "WorldService.CheckEvents")
	defer span.End()

	var resp *models.EventResponse
	err := ws.storage.Update(ctx, func(tx *storage.Tx) error {
		var err error
		resp, err = ws.generateEvents(ctx, tx)
		return err
	})
	if err != nil {
		log.Printf("❌ [事件] 检查事件失败: %v\n", err)
		return nil, ws.fail(span, storeFailure("检查事件", err))
	}

	return resp, nil
}

// GetWorldState 获取世界快照
func (ws *WorldService) GetWorldState(ctx context.Context) (*models.WorldState, error) {
	state, err := ws.storage.GetWorldState(ctx)
	if err != nil {
		return nil, storeFailure("获取世界状态", err)
	}
	return state, nil
}

// ListEvents 获取事件日志（最新在前）
func (ws *WorldService) ListEvents(ctx context.Context, limit int) ([]models.EventLogEntry, error) {
	events, err := ws.storage.ListEvents(ctx, limit)
	if err != nil {
		return nil, storeFailure("获取事件日志", err)
	}
	return events, nil
}

func (ws *WorldService) applyAction(ctx context.Context, tx *storage.Tx, action Action) error {
	outcome := ws.rules.CalculateOutcome(action.Kind, action.Magnitude)

	var description string
	switch action.Kind {
	case ActionMove:
		if _, err := tx.GetLocation(ctx, action.Target); err != nil {
			return targetError(err)
		}
		if err := tx.MovePlayer(ctx, action.Target); err != nil {
			return err
		}
		description = fmt.Sprintf("Knight moved to location %d", action.Target)

	case ActionHelp:
		if err := tx.ImproveLocation(ctx, action.Target, outcome.Prosperity, outcome.Safety); err != nil {
			return targetError(err)
		}
		if err := tx.AddReputation(ctx, outcome.Reputation); err != nil {
			return err
		}
		description = fmt.Sprintf("Knight helped location %d, increasing prosperity and safety", action.Target)

	case ActionFight:
		if err := tx.AddFactionPower(ctx, action.Target, -outcome.Power); err != nil {
			return targetError(err)
		}
		if err := tx.AddReputation(ctx, outcome.Reputation); err != nil {
			return err
		}
		description = fmt.Sprintf("Knight fought faction %d, reducing their power", action.Target)

	default:
		// 未识别的行动不修改世界，也不记录日志
		log.Printf("⚠️ [行动] 忽略未知行动 %q\n", action.Raw)
		return nil
	}

	if _, err := tx.LogEvent(ctx, description, action.CausedBy); err != nil {
		return err
	}
	log.Printf("🗡️ [行动] %s (by %s)\n", description, action.CausedBy)
	return nil
}

// advance 增加张力并按推进前的阶段计算新阶段
func (ws *WorldService) advance(ctx context.Context, tx *storage.Tx) error {
	world, err := tx.GetWorld(ctx)
	if err != nil {
		return err
	}

	delta := ws.rules.TensionDelta()
	tension := ws.rules.ClampTension(world.Tension + delta)
	phase := ws.phases.Advance(tension, world.StoryPhase)

	if err := tx.SetWorld(ctx, tension, phase); err != nil {
		return err
	}

	if phase != world.StoryPhase {
		log.Printf("📜 [剧情] %s → %s（张力 %d → %d）\n", world.StoryPhase, phase, world.Tension, tension)
	}
	return nil
}

func (ws *WorldService) generateEvents(ctx context.Context, tx *storage.Tx) (*models.EventResponse, error) {
	state, err := tx.WorldState(ctx)
	if err != nil {
		return nil, err
	}

	phase := state.World.StoryPhase
	candidates := ws.catalog.TemplatesForPhase(phase)
	if len(candidates) == 0 {
		return &models.EventResponse{Events: []string{}, Narrative: QuietNarrative}, nil
	}

	tmpl := candidates[ws.rules.Pick(len(candidates))]
	locationName := playerLocationName(state)
	factionName := ws.pickFaction(state.Factions)

	description := strings.NewReplacer(
		catalog.LocationPlaceholder, locationName,
		catalog.FactionPlaceholder, factionName,
	).Replace(tmpl.Description)

	if _, err := tx.LogEvent(ctx, description, SystemActor); err != nil {
		return nil, err
	}

	if tmpl.Effect != nil {
		params := make(map[string]string, len(tmpl.Effect.Params))
		for _, p := range tmpl.Effect.Params {
			params[p] = locationName
		}
		if err := tx.ExecEffect(ctx, tmpl.Effect.Query, params); err != nil {
			return nil, err
		}
	}

	log.Printf("🎲 [事件] [%s] %s\n", phase, description)

	return &models.EventResponse{
		Events:    []string{description},
		Narrative: ws.catalog.NarrativeFor(phase),
	}, nil
}

// pickFaction 按势力数量均匀选择
func (ws *WorldService) pickFaction(factions []models.Faction) string {
	i := ws.rules.Pick(len(factions))
	if i < 0 {
		return unknownFaction
	}
	return factions[i].Name
}

func playerLocationName(state *models.WorldState) string {
	if loc, ok := state.LocationByID(state.Player.LocationID); ok {
		return loc.Name
	}
	return fmt.Sprintf("location %d", state.Player.LocationID)
}

// targetError 目标不存在属于输入错误，其余原样返回
func targetError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return invalidInput("行动目标", err)
	}
	return err
}

func (ws *WorldService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
