package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aiwuxian/realm-chronicle/internal/models"
)

// DefaultPhases 默认剧情阶段：张力低于阈值时可进入该阶段
func DefaultPhases() []models.PhaseConfig {
	return []models.PhaseConfig{
		{Name: "Build-Up", Threshold: 40},
		{Name: "Conflict", Threshold: 70},
		{Name: "Climax", Threshold: 100},
	}
}

// PhaseMachine 张力驱动的剧情阶段状态机，构造后只读
type PhaseMachine struct {
	phases          []models.PhaseConfig
	index           map[string]int
	allowRegression bool
}

func NewPhaseMachine(phases []models.PhaseConfig, allowRegression bool) (*PhaseMachine, error) {
	if len(phases) == 0 {
		return nil, errors.New("至少需要一个剧情阶段")
	}

	pm := &PhaseMachine{
		phases:          make([]models.PhaseConfig, len(phases)),
		index:           make(map[string]int, len(phases)),
		allowRegression: allowRegression,
	}
	copy(pm.phases, phases)

	for i, p := range pm.phases {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("第 %d 个剧情阶段缺少名称", i+1)
		}
		if _, dup := pm.index[p.Name]; dup {
			return nil, fmt.Errorf("剧情阶段重复: %s", p.Name)
		}
		if i > 0 && p.Threshold <= pm.phases[i-1].Threshold {
			return nil, fmt.Errorf("剧情阶段 %s 的阈值必须大于 %s", p.Name, pm.phases[i-1].Name)
		}
		pm.index[p.Name] = i
	}

	return pm, nil
}

// Names 按顺序返回阶段名称
func (pm *PhaseMachine) Names() []string {
	names := make([]string, len(pm.phases))
	for i, p := range pm.phases {
		names[i] = p.Name
	}
	return names
}

// Initial 第一个阶段
func (pm *PhaseMachine) Initial() string {
	return pm.phases[0].Name
}

// Final 最后一个阶段（高潮）
func (pm *PhaseMachine) Final() string {
	return pm.phases[len(pm.phases)-1].Name
}

// Known 是否为已配置阶段
func (pm *PhaseMachine) Known(phase string) bool {
	_, ok := pm.index[phase]
	return ok
}

// NextPhase 按顺序返回第一个阈值大于 tension 且名称与 current 不同的阶段；
// 都不满足时，张力满值进入最后阶段，否则保持 current。
func (pm *PhaseMachine) NextPhase(tension int, current string) string {
	for _, p := range pm.phases {
		if tension < p.Threshold && p.Name != current {
			return p.Name
		}
	}
	if tension >= MaxTension {
		return pm.Final()
	}
	if !pm.Known(current) {
		return pm.Final()
	}
	return current
}

// Advance 在 NextPhase 基础上应用回退策略：不允许回退时不会回到更早的阶段
func (pm *PhaseMachine) Advance(tension int, current string) string {
	next := pm.NextPhase(tension, current)
	if pm.allowRegression {
		return next
	}
	if ci, ok := pm.index[current]; ok && pm.index[next] < ci {
		return current
	}
	return next
}
