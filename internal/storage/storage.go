package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/aiwuxian/realm-chronicle/internal/models"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

const defaultQueryTimeout = 5 * time.Second

// timeNow 可在测试中替换
var timeNow = time.Now

// Storage 世界存储。单连接串行化所有事务，保证单例记录的读改写不丢失更新。
type Storage struct {
	db      *sqlx.DB
	timeout time.Duration
}

func New(cfg models.DatabaseConfig) (*Storage, error) {
	if cfg.Path == "" {
		return nil, errors.New("数据库路径不能为空")
	}

	if cfg.Path != ":memory:" {
		// 确保目录存在
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("设置 %q 失败: %w", pragma, err)
		}
	}

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}

	s := &Storage{db: db, timeout: timeout}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化数据库结构失败: %w", err)
	}

	return s, nil
}

func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS locations (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		prosperity INTEGER NOT NULL DEFAULT 0,
		safety INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS factions (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		power INTEGER NOT NULL DEFAULT 0,
		relation TEXT NOT NULL DEFAULT 'Neutral'
	);

	CREATE TABLE IF NOT EXISTS npcs (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Alive',
		location_id INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS player (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		location_id INTEGER NOT NULL,
		reputation INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS world (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		tension INTEGER NOT NULL CHECK (tension BETWEEN 0 AND 100),
		story_phase TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS event_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		description TEXT NOT NULL,
		caused_by TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS story_events (
		id TEXT PRIMARY KEY,
		context TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	-- 事件日志只追加
	CREATE TRIGGER IF NOT EXISTS event_log_no_update BEFORE UPDATE ON event_log
	BEGIN SELECT RAISE(ABORT, 'event_log is append-only'); END;
	CREATE TRIGGER IF NOT EXISTS event_log_no_delete BEFORE DELETE ON event_log
	BEGIN SELECT RAISE(ABORT, 'event_log is append-only'); END;

	-- 单例记录不可删除
	CREATE TRIGGER IF NOT EXISTS player_no_delete BEFORE DELETE ON player
	BEGIN SELECT RAISE(ABORT, 'player is a singleton'); END;
	CREATE TRIGGER IF NOT EXISTS world_no_delete BEFORE DELETE ON world
	BEGIN SELECT RAISE(ABORT, 'world is a singleton'); END;

	CREATE INDEX IF NOT EXISTS idx_npcs_location ON npcs(location_id);
	CREATE INDEX IF NOT EXISTS idx_story_events_created ON story_events(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Seed 写入初始世界（已存在的记录不会被覆盖）
func (s *Storage) Seed(ctx context.Context, initialPhase string) error {
	return s.Update(ctx, func(tx *Tx) error {
		stmts := []struct {
			query string
			args  []any
		}{
			{`INSERT OR IGNORE INTO locations (id, name, prosperity, safety) VALUES (1, 'Capital', 80, 90)`, nil},
			{`INSERT OR IGNORE INTO locations (id, name, prosperity, safety) VALUES (2, 'Willowbrook', 50, 60)`, nil},
			{`INSERT OR IGNORE INTO factions (id, name, power, relation) VALUES (1, 'Royal Guard', 70, 'Friendly')`, nil},
			{`INSERT OR IGNORE INTO factions (id, name, power, relation) VALUES (2, 'Bandits', 30, 'Hostile')`, nil},
			{`INSERT OR IGNORE INTO npcs (id, name, role, status, location_id) VALUES (1, 'King Alric', 'Ruler', 'Alive', 1)`, nil},
			{`INSERT OR IGNORE INTO player (id, location_id, reputation) VALUES (1, 1, 50)`, nil},
			{`INSERT OR IGNORE INTO world (id, tension, story_phase) VALUES (1, 20, ?)`, []any{initialPhase}},
		}
		for _, st := range stmts {
			if _, err := tx.tx.ExecContext(ctx, st.query, st.args...); err != nil {
				return fmt.Errorf("写入初始数据失败: %w", err)
			}
		}
		return nil
	})
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Update 在一个事务中执行读改写，fn 返回错误时整体回滚
func (s *Storage) Update(ctx context.Context, fn func(tx *Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// View 在一个只读快照中执行 fn，结束后总是回滚
func (s *Storage) View(ctx context.Context, fn func(tx *Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer sqlTx.Rollback()

	return fn(&Tx{tx: sqlTx})
}

// GetWorldState 读取一致的世界快照
func (s *Storage) GetWorldState(ctx context.Context) (*models.WorldState, error) {
	var state *models.WorldState
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		state, err = tx.WorldState(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// ListEvents 按时间倒序列出事件日志，limit<=0 表示全部
func (s *Storage) ListEvents(ctx context.Context, limit int) ([]models.EventLogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `SELECT id, timestamp, description, caused_by FROM event_log ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	events := []models.EventLogEntry{}
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("查询事件日志失败: %w", err)
	}
	return events, nil
}

// StoryEvent operations
func (s *Storage) CreateStoryEvent(ctx context.Context, ev *models.StoryEvent) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO story_events (id, context, description, created_at)
		VALUES (?, ?, ?, ?)
	`, ev.ID, ev.Context, ev.Description, ev.CreatedAt)
	return err
}

// ListStoryEvents 按生成顺序倒序列出故事事件，limit<=0 表示全部
func (s *Storage) ListStoryEvents(ctx context.Context, limit int) ([]models.StoryEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `SELECT id, context, description, created_at FROM story_events ORDER BY rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	events := []models.StoryEvent{}
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("查询故事事件失败: %w", err)
	}
	return events, nil
}

func (s *Storage) GetStoryEvent(ctx context.Context, id string) (*models.StoryEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var ev models.StoryEvent
	err := s.db.GetContext(ctx, &ev, `
		SELECT id, context, description, created_at FROM story_events WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
