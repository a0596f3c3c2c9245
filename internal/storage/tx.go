package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/aiwuxian/realm-chronicle/internal/models"
)

// Tx 事务内的类型化访问器。只负责读写，不包含任何规则。
type Tx struct {
	tx *sqlx.Tx
}

// WorldState 在当前事务内读取全部实体
func (t *Tx) WorldState(ctx context.Context) (*models.WorldState, error) {
	world, err := t.GetWorld(ctx)
	if err != nil {
		return nil, err
	}
	player, err := t.GetPlayer(ctx)
	if err != nil {
		return nil, err
	}
	locations, err := t.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	factions, err := t.ListFactions(ctx)
	if err != nil {
		return nil, err
	}
	npcs, err := t.ListNPCs(ctx)
	if err != nil {
		return nil, err
	}

	return &models.WorldState{
		World:     *world,
		Player:    *player,
		Locations: locations,
		Factions:  factions,
		NPCs:      npcs,
	}, nil
}

// World operations
func (t *Tx) GetWorld(ctx context.Context) (*models.World, error) {
	var w models.World
	err := t.tx.GetContext(ctx, &w, `SELECT id, tension, story_phase FROM world WHERE id = 1`)
	if err != nil {
		return nil, notFound("获取世界失败", err)
	}
	return &w, nil
}

func (t *Tx) SetWorld(ctx context.Context, tension int, phase string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE world SET tension = ?, story_phase = ? WHERE id = 1`, tension, phase)
	if err != nil {
		return fmt.Errorf("更新世界失败: %w", err)
	}
	return nil
}

// Player operations
func (t *Tx) GetPlayer(ctx context.Context) (*models.Player, error) {
	var p models.Player
	err := t.tx.GetContext(ctx, &p, `SELECT id, location_id, reputation FROM player WHERE id = 1`)
	if err != nil {
		return nil, notFound("获取玩家失败", err)
	}
	return &p, nil
}

func (t *Tx) MovePlayer(ctx context.Context, locationID int) error {
	return t.execOne(ctx, "移动玩家失败",
		`UPDATE player SET location_id = ? WHERE id = 1`, locationID)
}

func (t *Tx) AddReputation(ctx context.Context, delta int) error {
	return t.execOne(ctx, "更新声望失败",
		`UPDATE player SET reputation = reputation + ? WHERE id = 1`, delta)
}

func (t *Tx) SetReputation(ctx context.Context, reputation int) error {
	return t.execOne(ctx, "设置声望失败",
		`UPDATE player SET reputation = ? WHERE id = 1`, reputation)
}

// Location operations
func (t *Tx) GetLocation(ctx context.Context, id int) (*models.Location, error) {
	var loc models.Location
	err := t.tx.GetContext(ctx, &loc, `SELECT id, name, prosperity, safety FROM locations WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(fmt.Sprintf("获取地点 %d 失败", id), err)
	}
	return &loc, nil
}

func (t *Tx) ListLocations(ctx context.Context) ([]models.Location, error) {
	locations := []models.Location{}
	if err := t.tx.SelectContext(ctx, &locations, `SELECT id, name, prosperity, safety FROM locations ORDER BY id`); err != nil {
		return nil, fmt.Errorf("查询地点失败: %w", err)
	}
	return locations, nil
}

// ImproveLocation 增加繁荣度与安全度
func (t *Tx) ImproveLocation(ctx context.Context, id, prosperity, safety int) error {
	return t.execOne(ctx, fmt.Sprintf("更新地点 %d 失败", id),
		`UPDATE locations SET prosperity = prosperity + ?, safety = safety + ? WHERE id = ?`,
		prosperity, safety, id)
}

// Faction operations
func (t *Tx) GetFaction(ctx context.Context, id int) (*models.Faction, error) {
	var f models.Faction
	err := t.tx.GetContext(ctx, &f, `SELECT id, name, power, relation FROM factions WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(fmt.Sprintf("获取势力 %d 失败", id), err)
	}
	return &f, nil
}

func (t *Tx) ListFactions(ctx context.Context) ([]models.Faction, error) {
	factions := []models.Faction{}
	if err := t.tx.SelectContext(ctx, &factions, `SELECT id, name, power, relation FROM factions ORDER BY id`); err != nil {
		return nil, fmt.Errorf("查询势力失败: %w", err)
	}
	return factions, nil
}

func (t *Tx) AddFactionPower(ctx context.Context, id, delta int) error {
	return t.execOne(ctx, fmt.Sprintf("更新势力 %d 失败", id),
		`UPDATE factions SET power = power + ? WHERE id = ?`, delta, id)
}

func (t *Tx) SetFactionPower(ctx context.Context, id, power int) error {
	return t.execOne(ctx, fmt.Sprintf("设置势力 %d 失败", id),
		`UPDATE factions SET power = ? WHERE id = ?`, power, id)
}

// NPC operations
func (t *Tx) ListNPCs(ctx context.Context) ([]models.NPC, error) {
	npcs := []models.NPC{}
	if err := t.tx.SelectContext(ctx, &npcs, `SELECT id, name, role, status, location_id FROM npcs ORDER BY id`); err != nil {
		return nil, fmt.Errorf("查询NPC失败: %w", err)
	}
	return npcs, nil
}

// LogEvent 追加一条事件日志
func (t *Tx) LogEvent(ctx context.Context, description, causedBy string) (*models.EventLogEntry, error) {
	entry := &models.EventLogEntry{
		Timestamp:   timeNow().UTC(),
		Description: description,
		CausedBy:    causedBy,
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO event_log (timestamp, description, caused_by) VALUES (?, ?, ?)
	`, entry.Timestamp, entry.Description, entry.CausedBy)
	if err != nil {
		return nil, fmt.Errorf("写入事件日志失败: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("读取事件日志ID失败: %w", err)
	}
	return entry, nil
}

// ExecEffect 执行事件效果语句，params 以命名参数绑定（:name）
func (t *Tx) ExecEffect(ctx context.Context, query string, params map[string]string) error {
	args := make([]any, 0, len(params))
	for name, value := range params {
		args = append(args, sql.Named(name, value))
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("执行事件效果失败: %w", err)
	}
	return nil
}

// execOne 执行更新，并在没有命中任何行时返回 ErrNotFound
func (t *Tx) execOne(ctx context.Context, msg, query string, args ...any) error {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return nil
}

func notFound(msg string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
