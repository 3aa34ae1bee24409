// internal/models/refine.go
package models

// Level 评价等级
type Level string

// 四个固定的评价等级，顺序即解析时的匹配顺序
const (
	LevelExcellent Level = "매우잘함"
	LevelGood      Level = "잘함"
	LevelFair      Level = "보통"
	LevelNeedsWork Level = "노력요함"
)

// Levels 按从高到低排列的全部等级
var Levels = []Level{LevelExcellent, LevelGood, LevelFair, LevelNeedsWork}

// ParseLevel 校验等级名称
func ParseLevel(s string) (Level, bool) {
	for _, level := range Levels {
		if string(level) == s {
			return level, true
		}
	}
	return "", false
}

// CriteriaSet 等级 -> 评价标准句子
type CriteriaSet map[Level]string

// Ordered 按固定等级顺序返回存在的条目
func (cs CriteriaSet) Ordered() []CriterionEntry {
	entries := make([]CriterionEntry, 0, len(cs))
	for _, level := range Levels {
		if text, ok := cs[level]; ok {
			entries = append(entries, CriterionEntry{Level: level, Text: text})
		}
	}
	return entries
}

// CriterionEntry 单个等级的评价标准
type CriterionEntry struct {
	Level Level  `json:"level" yaml:"level"`
	Text  string `json:"text" yaml:"text"`
}

// ImprovementContext 可选的课程信息，仅用于拼接提示词
type ImprovementContext struct {
	Grade    string `json:"grade,omitempty" yaml:"grade,omitempty"`       // 학년
	Semester string `json:"semester,omitempty" yaml:"semester,omitempty"` // 학기
	Subject  string `json:"subject,omitempty" yaml:"subject,omitempty"`   // 과목
	Unit     string `json:"unit,omitempty" yaml:"unit,omitempty"`         // 단원
	Domain   string `json:"domain,omitempty" yaml:"domain,omitempty"`     // 영역
	Criteria string `json:"criteria,omitempty" yaml:"criteria,omitempty"` // 성취기준
}

// IsEmpty 所有字段都为空
func (c *ImprovementContext) IsEmpty() bool {
	return c == nil || *c == ImprovementContext{}
}

// TextImprovementResult 文本改写/评价标准生成的结果
//
// Criteria 在生成整套标准时是 CriteriaSet，生成单个等级时是 string。
type TextImprovementResult struct {
	Success  bool        `json:"success" yaml:"success"`
	Original string      `json:"original,omitempty" yaml:"original,omitempty"`
	Improved string      `json:"improved,omitempty" yaml:"improved,omitempty"`
	Options  []string    `json:"options,omitempty" yaml:"options,omitempty"`
	Criteria interface{} `json:"criteria,omitempty" yaml:"criteria,omitempty"`
	Error    string      `json:"error,omitempty" yaml:"error,omitempty"`

	// 整套标准解析时无法识别的行和缺失的等级
	Unrecognized  []string `json:"unrecognized_lines,omitempty" yaml:"unrecognized_lines,omitempty"`
	MissingLevels []Level  `json:"missing_levels,omitempty" yaml:"missing_levels,omitempty"`
}

// Failed 构造失败结果
func Failed(err error) TextImprovementResult {
	return TextImprovementResult{Success: false, Error: err.Error()}
}
