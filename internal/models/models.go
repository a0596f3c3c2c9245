package models

import "time"

// Location 地点
type Location struct {
	ID         int    `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	Prosperity int    `json:"prosperity" db:"prosperity"`
	Safety     int    `json:"safety" db:"safety"`
}

// Faction 势力
type Faction struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Power    int    `json:"power" db:"power"`
	Relation string `json:"relation" db:"relation"` // Friendly, Hostile, ...
}

// NPC 非玩家角色
type NPC struct {
	ID         int    `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	Role       string `json:"role" db:"role"`
	Status     string `json:"status" db:"status"` // Alive, Dead, ...
	LocationID int    `json:"location_id" db:"location_id"`
}

// Player 玩家（唯一）
type Player struct {
	ID         int `json:"id" db:"id"`
	LocationID int `json:"location_id" db:"location_id"`
	Reputation int `json:"reputation" db:"reputation"`
}

// World 世界状态（唯一）
type World struct {
	ID         int    `json:"id" db:"id"`
	Tension    int    `json:"tension" db:"tension"`
	StoryPhase string `json:"story_phase" db:"story_phase"`
}

// WorldState 世界快照
type WorldState struct {
	World     World      `json:"world"`
	Player    Player     `json:"player"`
	Locations []Location `json:"locations"`
	Factions  []Faction  `json:"factions"`
	NPCs      []NPC      `json:"npcs"`
}

// LocationByID 按ID查找地点
func (ws *WorldState) LocationByID(id int) (Location, bool) {
	for _, loc := range ws.Locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return Location{}, false
}

// EventLogEntry 事件日志条目（只追加）
type EventLogEntry struct {
	ID          int64     `json:"id" db:"id"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	Description string    `json:"description" db:"description"`
	CausedBy    string    `json:"caused_by" db:"caused_by"`
}

// EventResponse 引擎响应
type EventResponse struct {
	Events    []string `json:"events"`
	Narrative string   `json:"narrative"`
}

// StoryEvent LLM生成的故事事件
type StoryEvent struct {
	ID          string    `json:"id" db:"id"`
	Context     string    `json:"context" db:"context"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// BranchChoice 玩家分支选项
type BranchChoice struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// FactionPower 势力力量覆盖
type FactionPower struct {
	FactionID int `json:"faction_id"`
	Power     int `json:"power"`
}

// StateOverride 直接覆盖世界数值
type StateOverride struct {
	PlayerReputation *int           `json:"player_reputation"`
	FactionPower     []FactionPower `json:"faction_power"`
}

// Config 配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Game      GameConfig      `yaml:"game"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"REALM_PORT"`
	Host string `yaml:"host" env:"REALM_HOST"`
}

type DatabaseConfig struct {
	Path         string        `yaml:"path" env:"REALM_DB_PATH"`
	QueryTimeout time.Duration `yaml:"query_timeout" env:"REALM_DB_QUERY_TIMEOUT"`
}

type LLMConfig struct {
	APIKey      string  `yaml:"api_key" env:"OPENAI_API_KEY"`
	APIBase     string  `yaml:"api_base" env:"REALM_LLM_API_BASE"`
	Model       string  `yaml:"model" env:"REALM_LLM_MODEL"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// PhaseConfig 剧情阶段及其张力上限
type PhaseConfig struct {
	Name      string `yaml:"name"`
	Threshold int    `yaml:"threshold"`
}

type GameConfig struct {
	EventsPath           string        `yaml:"events_path" env:"REALM_EVENTS_PATH"`
	StoryCyclesPath      string        `yaml:"story_cycles_path" env:"REALM_STORY_CYCLES_PATH"`
	Phases               []PhaseConfig `yaml:"phases"`
	AllowPhaseRegression bool          `yaml:"allow_phase_regression" env:"REALM_ALLOW_PHASE_REGRESSION"`
	Seed                 int64         `yaml:"seed" env:"REALM_SEED"` // 0 = random
}

type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint" env:"REALM_OTEL_ENDPOINT"`
	ServiceName string `yaml:"service_name"`
}
