package services

import (
	"fmt"
	"strings"
)

const (
	// DefaultCausedBy 未指定行动者时的默认值
	DefaultCausedBy = "Player"
	// MaxMagnitude 单次行动力度上限，超过后数值计算可能溢出
	MaxMagnitude = 1000
)

// ActionKind 行动类型
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionMove
	ActionHelp
	ActionFight
)

func (k ActionKind) String() string {
	switch k {
	case ActionMove:
		return "move"
	case ActionHelp:
		return "help"
	case ActionFight:
		return "fight"
	default:
		return "unknown"
	}
}

// ParseActionKind 未识别的类型返回 ActionUnknown
func ParseActionKind(raw string) ActionKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "move":
		return ActionMove
	case "help":
		return ActionHelp
	case "fight":
		return ActionFight
	default:
		return ActionUnknown
	}
}

// Action 玩家行动。Target 对 move/help 是地点ID，对 fight 是势力ID。
type Action struct {
	Kind      ActionKind
	Raw       string
	Target    int
	Magnitude int
	CausedBy  string
}

// ParseAction 在边界处解析行动：力度为 0 视为 1，负数或超过 MaxMagnitude 视为非法，行动者为空视为 Player
func ParseAction(raw string, target, magnitude int, causedBy string) (Action, error) {
	a := Action{
		Kind:      ParseActionKind(raw),
		Raw:       raw,
		Target:    target,
		Magnitude: magnitude,
		CausedBy:  causedBy,
	}
	return a.normalize()
}

func (a Action) normalize() (Action, error) {
	if a.Magnitude < 0 {
		return a, invalidInput("解析行动", fmt.Errorf("力度不能为负数: %d", a.Magnitude))
	}
	if a.Magnitude > MaxMagnitude {
		return a, invalidInput("解析行动", fmt.Errorf("力度不能超过 %d: %d", MaxMagnitude, a.Magnitude))
	}
	if a.Magnitude == 0 {
		a.Magnitude = 1
	}
	if strings.TrimSpace(a.CausedBy) == "" {
		a.CausedBy = DefaultCausedBy
	}
	return a, nil
}
