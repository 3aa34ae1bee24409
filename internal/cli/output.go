// internal/cli/output.go
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/edulab-kr/evalassist/internal/models"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Printer 按格式输出结果；human 格式由调用方提供渲染函数
type Printer struct {
	Format string
	Out    io.Writer
}

// Print 输出 value
func (p *Printer) Print(value interface{}, human func(w io.Writer)) error {
	switch p.Format {
	case "json":
		output, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(p.Out, string(output))
	case "yaml":
		output, err := yaml.Marshal(value)
		if err != nil {
			return err
		}
		fmt.Fprint(p.Out, string(output))
	default:
		human(p.Out)
	}
	return nil
}

// withSpinner 在 human 模式下显示进度，机器可读格式保持输出干净
func withSpinner(format string, w io.Writer, suffix string, fn func()) {
	if format != "human" {
		fn()
		return
	}

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	s.Start()
	defer s.Stop()
	fn()
}

func printFailure(w io.Writer, errMsg string) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintln(w, "✗ Failed")
	fmt.Fprintf(w, "  %s\n", errMsg)
}

// renderRefine human 格式的改写结果
func renderRefine(result models.TextImprovementResult) func(w io.Writer) {
	return func(w io.Writer) {
		if !result.Success {
			printFailure(w, result.Error)
			return
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)

		if result.Original != "" {
			fmt.Fprintf(w, "%s %s\n", cyan.Sprint("Original:"), result.Original)
		}
		if result.Improved != "" {
			fmt.Fprintf(w, "%s %s\n", cyan.Sprint("Improved:"), green.Sprint(result.Improved))
		}
		for i, option := range result.Options {
			fmt.Fprintf(w, "  %d. %s\n", i+1, green.Sprint(option))
		}

		switch criteria := result.Criteria.(type) {
		case models.CriteriaSet:
			for _, entry := range criteria.Ordered() {
				fmt.Fprintf(w, "%s %s\n", cyan.Sprintf("[%s]", entry.Level), entry.Text)
			}
		case string:
			fmt.Fprintln(w, green.Sprint(criteria))
		}

		if len(result.MissingLevels) > 0 {
			fmt.Fprintf(w, "%s %v\n", color.YellowString("Missing levels:"), result.MissingLevels)
		}
		for _, line := range result.Unrecognized {
			fmt.Fprintf(w, "  %s %s\n", color.HiBlackString("ignored:"), line)
		}
	}
}

// renderDocument human 格式的数字化结果
func renderDocument(view *models.DocumentView, failure *models.AnalysisResult, htmlOnly bool) func(w io.Writer) {
	return func(w io.Writer) {
		if failure != nil {
			printFailure(w, failure.Error+": "+failure.Message)
			return
		}
		if htmlOnly {
			fmt.Fprintln(w, view.HTMLContent)
			return
		}

		cyan := color.New(color.FgCyan, color.Bold)
		cyan.Fprintf(w, "📄 %s\n", view.OriginalFilename)
		if view.FileInfo != nil {
			fmt.Fprintf(w, "   size: %d bytes, modified: %s\n", view.FileInfo.Size, view.FileInfo.Modified.Format(time.RFC3339))
		}
		fmt.Fprintf(w, "   html: %d characters\n\n", len([]rune(view.HTMLContent)))
		fmt.Fprintln(w, view.HTMLContent)
	}
}
