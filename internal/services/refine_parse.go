// internal/services/refine_parse.go
package services

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/edulab-kr/evalassist/internal/models"
)

// 改写候选数量：默认值和允许的上限
const (
	DefaultOptionCount = 3
	MaxOptionCount     = 10
)

// normalizeText 统一为 NFC 并去掉首尾空白；浏览器可能提交分解形式的한글
func normalizeText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// SplitReplyLines 按行拆分回复，去掉空行和首尾空白
func SplitReplyLines(reply string) []string {
	rawLines := strings.Split(strings.ReplaceAll(reply, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(rawLines))
	for _, line := range rawLines {
		if line = normalizeText(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// FitOptions 把候选列表整理成恰好 n 条：不足时用原文补齐，多余时截断。
// n 会被限制在 [1, MaxOptionCount]，n<1 时取默认值。
func FitOptions(options []string, original string, n int) []string {
	if n < 1 {
		n = DefaultOptionCount
	}
	if n > MaxOptionCount {
		n = MaxOptionCount
	}

	fitted := make([]string, 0, n)
	for _, option := range options {
		if len(fitted) == n {
			break
		}
		fitted = append(fitted, option)
	}
	for len(fitted) < n {
		fitted = append(fitted, original)
	}
	return fitted
}

// CriteriaParse 评价标准回复的解析结果
type CriteriaParse struct {
	Criteria     models.CriteriaSet
	Unrecognized []string
	Missing      []models.Level
}

// Complete 四个等级是否都已解析到
func (p CriteriaParse) Complete() bool {
	return len(p.Missing) == 0
}

// ParseCriteria 逐行匹配 "<等级>:" 前缀。同一等级出现多次时以最后一次为准，
// 无法匹配的行记录在 Unrecognized 中，从不返回错误。
func ParseCriteria(reply string) CriteriaParse {
	result := CriteriaParse{Criteria: make(models.CriteriaSet)}

	for _, line := range SplitReplyLines(reply) {
		matched := false
		for _, level := range models.Levels {
			prefix := string(level) + ":"
			if strings.HasPrefix(line, prefix) {
				result.Criteria[level] = strings.TrimSpace(strings.TrimPrefix(line, prefix))
				matched = true
				break
			}
		}
		if !matched {
			result.Unrecognized = append(result.Unrecognized, line)
		}
	}

	for _, level := range models.Levels {
		if _, ok := result.Criteria[level]; !ok {
			result.Missing = append(result.Missing, level)
		}
	}
	return result
}
