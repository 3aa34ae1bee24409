// internal/services/refine_prompts.go
package services

import (
	"fmt"
	"strings"

	"github.com/edulab-kr/evalassist/internal/models"
)

// 提示词中共用的说明
const (
	promptIntroElement  = "다음은 초등학교 교육과정 평가요소 문장입니다."
	promptIntroCriteria = "다음은 초등학교 교육과정 평가기준을 생성하는 작업입니다."
	promptKeepEnding    = "말투는 그대로 유지해 주세요. (예: '~을 실천하기', '~을 기르기', '~을 이해하기' 등의 형태로 끝나야 합니다.)"
)

// buildContextBlock 只拼接存在的字段；includeCriteria 控制是否写入성취기준
func buildContextBlock(rc *models.ImprovementContext, includeCriteria bool) string {
	if rc.IsEmpty() {
		return ""
	}

	var sb strings.Builder
	if rc.Grade != "" && rc.Semester != "" {
		fmt.Fprintf(&sb, "- 대상: %s학년 %s학기\n", rc.Grade, rc.Semester)
	}
	if rc.Subject != "" {
		fmt.Fprintf(&sb, "- 과목: %s\n", rc.Subject)
	}
	if rc.Unit != "" {
		fmt.Fprintf(&sb, "- 단원: %s\n", rc.Unit)
	}
	if rc.Domain != "" {
		fmt.Fprintf(&sb, "- 영역: %s\n", rc.Domain)
	}
	if includeCriteria && rc.Criteria != "" {
		fmt.Fprintf(&sb, "- 성취기준: %s\n", rc.Criteria)
	}
	return sb.String()
}

func writeRules(sb *strings.Builder, rules ...string) {
	sb.WriteString("단, 다음 기준을 반드시 지켜 주세요:\n")
	for i, rule := range rules {
		fmt.Fprintf(sb, "%d. %s\n", i+1, rule)
	}
}

func writeContextSection(sb *strings.Builder, rc *models.ImprovementContext, includeCriteria bool) {
	if block := buildContextBlock(rc, includeCriteria); block != "" {
		sb.WriteString("\n교육과정 정보:\n")
		sb.WriteString(block)
	}
}

// buildImprovePrompt 单句改写
func buildImprovePrompt(text string, rc *models.ImprovementContext) string {
	var sb strings.Builder
	sb.WriteString(promptIntroElement)
	sb.WriteString("\n\n아래 문장을 더 명확하고 간결하게 다듬어 주세요.\n\n")
	writeRules(&sb,
		promptKeepEnding,
		"한 문장으로만 출력해 주세요.",
		"평가 문장 외에 불필요한 설명, 개선 이유, '개선된 문장:' 등의 문구는 포함하지 마세요.",
	)
	writeContextSection(&sb, rc, true)
	fmt.Fprintf(&sb, "\n원문 문장:\n%s\n", text)
	return sb.String()
}

// buildOptionsPrompt 生成 n 个不同版本
func buildOptionsPrompt(text string, rc *models.ImprovementContext, n int) string {
	var sb strings.Builder
	sb.WriteString(promptIntroElement)
	fmt.Fprintf(&sb, "\n\n아래 문장을 더 명확하고 간결하게 다듬어서 %d가지 서로 다른 버전으로 제시해 주세요.\n\n", n)
	writeRules(&sb,
		promptKeepEnding,
		"각 옵션은 한 문장으로만 작성해 주세요.",
		"각 옵션은 서로 다른 관점이나 표현으로 작성해 주세요.",
		"번호나 '옵션 1:', '개선된 문장:' 등의 불필요한 문구는 포함하지 마세요.",
		"각 문장은 줄바꿈으로 구분해 주세요.",
	)
	writeContextSection(&sb, rc, true)
	fmt.Fprintf(&sb, "\n원문 문장:\n%s\n", text)
	return sb.String()
}

// buildCriteriaSetPrompt 四个等级的评价标准
func buildCriteriaSetPrompt(element string, existing models.CriteriaSet, rc *models.ImprovementContext) string {
	var sb strings.Builder
	sb.WriteString(promptIntroCriteria)
	sb.WriteString("\n")
	writeContextSection(&sb, rc, true)
	fmt.Fprintf(&sb, "\n평가요소: %s\n", element)

	if entries := existing.Ordered(); len(entries) > 0 {
		sb.WriteString("\n기존 평가기준 (참고용 - 정도와 스타일 참조):\n")
		for _, entry := range entries {
			fmt.Fprintf(&sb, "- %s: %s\n", entry.Level, entry.Text)
		}
	}

	sb.WriteString("\n위 정보를 바탕으로 새로운 평가요소에 맞는 4단계 평가기준을 생성해 주세요.\n\n요구사항:\n")
	rules := []string{
		"기존 평가기준의 난이도 정도와 문체를 유지해 주세요",
		"새로운 평가요소의 내용에 맞게 구체적으로 작성해 주세요",
		"각 단계별로 명확한 차이가 있도록 해주세요",
		targetLevelRule(rc),
		"각 기준은 한 문장으로 작성해 주세요",
	}
	for i, rule := range rules {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, rule)
	}

	sb.WriteString("\n출력 형식 (정확히 이 형식으로):\n")
	for _, level := range models.Levels {
		fmt.Fprintf(&sb, "%s: [평가기준 내용]\n", level)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// buildSingleCriterionPrompt 单个等级；课程信息里不写成就标准
func buildSingleCriterionPrompt(level models.Level, element, original string, rc *models.ImprovementContext) string {
	var sb strings.Builder
	sb.WriteString(promptIntroCriteria)
	sb.WriteString("\n")
	writeContextSection(&sb, rc, false)
	fmt.Fprintf(&sb, "\n평가요소: %s\n평가 수준: %s\n", element, level)
	if original != "" {
		fmt.Fprintf(&sb, "기존 %s 기준 (참고용): %s\n", level, original)
	}

	fmt.Fprintf(&sb, "\n위 정보를 바탕으로 새로운 평가요소에 맞는 '%s' 수준의 평가기준을 생성해 주세요.\n\n요구사항:\n", level)
	rules := []string{
		"기존 평가기준의 난이도 정도와 문체를 유지해 주세요",
		"새로운 평가요소의 내용에 맞게 구체적으로 작성해 주세요",
		fmt.Sprintf("'%s' 수준에 적합한 내용으로 작성해 주세요", level),
		"초등학생 수준에 맞는 평가 내용으로 작성해 주세요",
		"한 문장으로 작성해 주세요",
		"평가기준 내용만 출력하고 다른 설명은 포함하지 마세요",
	}
	for i, rule := range rules {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, rule)
	}
	fmt.Fprintf(&sb, "\n%s 평가기준:", level)
	return sb.String()
}

func targetLevelRule(rc *models.ImprovementContext) string {
	if rc != nil && rc.Grade != "" && rc.Semester != "" {
		return fmt.Sprintf("%s학년 %s학기 수준에 맞는 평가 내용으로 작성해 주세요", rc.Grade, rc.Semester)
	}
	return "초등학생 수준에 맞는 평가 내용으로 작성해 주세요"
}
