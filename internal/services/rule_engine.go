package services

import (
	"math/rand"
	"sync"
	"time"
)

const (
	MinTension = 0
	MaxTension = 100

	minTensionDelta = 5
	maxTensionDelta = 14
)

// Random 随机数来源，测试中可注入确定序列
type Random interface {
	// Intn 返回 [0,n) 内的整数
	Intn(n int) int
}

// Outcome 一次行动对世界数值的影响
type Outcome struct {
	Prosperity int
	Safety     int
	Power      int // 目标势力损失的力量
	Reputation int
}

type RuleEngine struct {
	mu  sync.Mutex
	rng Random
}

// NewRuleEngine seed 为 0 时使用当前时间
func NewRuleEngine(seed int64) *RuleEngine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewRuleEngineWithSource(rand.New(rand.NewSource(seed)))
}

func NewRuleEngineWithSource(rng Random) *RuleEngine {
	return &RuleEngine{rng: rng}
}

func (re *RuleEngine) intn(n int) int {
	re.mu.Lock()
	defer re.mu.Unlock()
	return re.rng.Intn(n)
}

// TensionDelta 每次行动增加的张力，闭区间 [5,14]
func (re *RuleEngine) TensionDelta() int {
	return minTensionDelta + re.intn(maxTensionDelta-minTensionDelta+1)
}

// Pick 均匀选择 [0,n) 中的下标，n<=0 时返回 -1
func (re *RuleEngine) Pick(n int) int {
	if n <= 0 {
		return -1
	}
	return re.intn(n)
}

// ClampTension 将张力限制在 [0,100]
func (re *RuleEngine) ClampTension(tension int) int {
	if tension > MaxTension {
		return MaxTension
	}
	if tension < MinTension {
		return MinTension
	}
	return tension
}

// CalculateOutcome 根据行动类型与力度计算数值变化
func (re *RuleEngine) CalculateOutcome(kind ActionKind, magnitude int) Outcome {
	switch kind {
	case ActionHelp:
		return Outcome{
			Prosperity: 10 * magnitude,
			Safety:     10 * magnitude,
			Reputation: 5 * magnitude,
		}
	case ActionFight:
		return Outcome{
			Power:      10 * magnitude,
			Reputation: 3 * magnitude,
		}
	}
	return Outcome{}
}
