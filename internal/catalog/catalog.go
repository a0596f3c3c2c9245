// Package catalog 事件目录：事件模板与剧情阶段叙事，启动时加载，之后只读
package catalog

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultNarrative 阶段没有配置叙事时的默认文本
const DefaultNarrative = "The story unfolds..."

// 事件描述中的占位符
const (
	LocationPlaceholder = "{location}"
	FactionPlaceholder  = "{faction}"
)

// ErrInvalidCatalog 所有事件目录配置错误都匹配它
var ErrInvalidCatalog = errors.New("事件目录无效")

var reNamedParam = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// ConfigError 事件目录配置错误，进程应拒绝启动
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("事件目录 %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("事件目录 %s: %s", e.Path, e.Reason)
}

// Unwrap 同时匹配 ErrInvalidCatalog 与底层原因
func (e *ConfigError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidCatalog, e.Err}
	}
	return []error{ErrInvalidCatalog}
}

// Effect 事件效果：单条 UPDATE 语句，Params 与语句中的 :name 一一对应
type Effect struct {
	Query  string   `yaml:"query" json:"query"`
	Params []string `yaml:"params" json:"params"`
}

// EventTemplate 绑定到某个剧情阶段的事件模板
type EventTemplate struct {
	Phase       string  `yaml:"phase" json:"phase"`
	Description string  `yaml:"description" json:"description"`
	Effect      *Effect `yaml:"effect,omitempty" json:"effect,omitempty"`
}

// Catalog 加载后只读，可并发使用
type Catalog struct {
	templates map[string][]EventTemplate
	cycles    map[string]string
	size      int
}

// Load 读取事件模板与剧情叙事文件，并按 phases 校验模板阶段
func Load(eventsPath, cyclesPath string, phases []string) (*Catalog, error) {
	var templates []EventTemplate
	if err := readDocument(eventsPath, &templates); err != nil {
		return nil, err
	}

	cycles := map[string]string{}
	if err := readDocument(cyclesPath, &cycles); err != nil {
		return nil, err
	}

	return New(templates, cycles, phases, eventsPath)
}

// New 用已解析的数据构建事件目录，source 用于错误信息
func New(templates []EventTemplate, cycles map[string]string, phases []string, source string) (*Catalog, error) {
	if len(phases) == 0 {
		return nil, &ConfigError{Path: source, Reason: "没有配置剧情阶段"}
	}
	known := make(map[string]bool, len(phases))
	for _, p := range phases {
		known[p] = true
	}

	c := &Catalog{
		templates: make(map[string][]EventTemplate),
		cycles:    make(map[string]string, len(cycles)),
	}

	for i, tmpl := range templates {
		if !known[tmpl.Phase] {
			return nil, &ConfigError{
				Path:   source,
				Reason: fmt.Sprintf("第 %d 个模板引用了未知阶段 %q", i, tmpl.Phase),
			}
		}
		if strings.TrimSpace(tmpl.Description) == "" {
			return nil, &ConfigError{Path: source, Reason: fmt.Sprintf("第 %d 个模板描述为空", i)}
		}
		if tmpl.Effect != nil {
			if err := validateEffect(tmpl.Effect); err != nil {
				return nil, &ConfigError{Path: source, Reason: fmt.Sprintf("第 %d 个模板效果无效", i), Err: err}
			}
		}
		c.templates[tmpl.Phase] = append(c.templates[tmpl.Phase], tmpl)
		c.size++
	}

	for phase, text := range cycles {
		c.cycles[phase] = text
	}

	return c, nil
}

// TemplatesForPhase 按文件顺序返回该阶段的模板副本
func (c *Catalog) TemplatesForPhase(phase string) []EventTemplate {
	src := c.templates[phase]
	out := make([]EventTemplate, len(src))
	copy(out, src)
	return out
}

// NarrativeFor 阶段叙事，未配置时返回 DefaultNarrative
func (c *Catalog) NarrativeFor(phase string) string {
	if text, ok := c.cycles[phase]; ok {
		return text
	}
	return DefaultNarrative
}

// Len 模板总数
func (c *Catalog) Len() int {
	return c.size
}

func readDocument(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ConfigError{Path: path, Reason: "读取文件失败", Err: err}
	}
	// yaml.v3 同样可以解析 JSON
	if err := yaml.Unmarshal(data, target); err != nil {
		return &ConfigError{Path: path, Reason: "解析文件失败", Err: err}
	}
	return nil
}

func validateEffect(e *Effect) error {
	query := strings.TrimSpace(e.Query)
	if query == "" {
		return errors.New("效果语句为空")
	}
	if !strings.HasPrefix(strings.ToUpper(query), "UPDATE ") {
		return fmt.Errorf("效果必须是 UPDATE 语句: %q", query)
	}
	if strings.Contains(strings.TrimSuffix(query, ";"), ";") {
		return fmt.Errorf("效果只能包含一条语句: %q", query)
	}

	listed := make(map[string]bool, len(e.Params))
	for _, p := range e.Params {
		listed[p] = true
	}
	used := map[string]bool{}
	for _, m := range reNamedParam.FindAllStringSubmatch(query, -1) {
		used[m[1]] = true
		if !listed[m[1]] {
			return fmt.Errorf("效果语句中的 :%s 没有列在 params 中", m[1])
		}
	}
	for _, p := range e.Params {
		if !used[p] {
			return fmt.Errorf("效果参数 %q 没有以 :%s 出现在语句中", p, p)
		}
	}
	return nil
}
