// internal/cli/improve.go
package cli

import (
	"context"

	"github.com/edulab-kr/evalassist/internal/models"
	"github.com/edulab-kr/evalassist/internal/services"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addContextFlags 课程信息相关的可选参数
func addContextFlags(flags *pflag.FlagSet, rc *models.ImprovementContext) {
	flags.StringVar(&rc.Grade, "grade", "", "Grade number, e.g. 3")
	flags.StringVar(&rc.Semester, "semester", "", "Semester number, e.g. 1")
	flags.StringVar(&rc.Subject, "subject", "", "Subject")
	flags.StringVar(&rc.Unit, "unit", "", "Unit")
	flags.StringVar(&rc.Domain, "domain", "", "Domain")
	flags.StringVar(&rc.Criteria, "standard", "", "Achievement standard text")
}

// contextOrNil 没有填写任何课程信息时返回 nil
func contextOrNil(rc *models.ImprovementContext) *models.ImprovementContext {
	if rc.IsEmpty() {
		return nil
	}
	return rc
}

// newRefiner 按当前配置创建改写服务
func (o *Options) newRefiner() (*services.RefineService, string, error) {
	format, err := o.OutputFormat()
	if err != nil {
		return nil, "", err
	}
	cfg, err := o.Config()
	if err != nil {
		return nil, "", err
	}
	svc, err := services.NewRefineService(cfg)
	if err != nil {
		return nil, "", err
	}
	return svc, format, nil
}

// runRefine 执行一次改写调用并输出结果
func (o *Options) runRefine(ctx context.Context, format, suffix string, call func(ctx context.Context) models.TextImprovementResult) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, o.Timeout())
	defer cancel()

	var result models.TextImprovementResult
	withSpinner(format, o.ErrOut, suffix, func() {
		result = call(ctx)
	})

	printer := &Printer{Format: format, Out: o.Out}
	if err := printer.Print(result, renderRefine(result)); err != nil {
		return err
	}
	if !result.Success {
		return errRemoteFailed
	}
	return nil
}

func newImproveCmd(opts *Options) *cobra.Command {
	var (
		numOptions int
		rc         models.ImprovementContext
	)

	cmd := &cobra.Command{
		Use:   "improve TEXT",
		Short: "Rewrite an evaluation element in formal assessment style",
		Long: `Rewrite one evaluation element. With --options N, ask for N alternative phrasings.

Examples:
  evalctl improve "물을 아껴 쓰기"
  evalctl improve "물을 아껴 쓰기" --options 5 --grade 3 --semester 1 --subject 과학`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, format, err := opts.newRefiner()
			if err != nil {
				return err
			}
			text := args[0]
			if numOptions > 0 {
				return opts.runRefine(cmd.Context(), format, "Generating options...", func(ctx context.Context) models.TextImprovementResult {
					return svc.ImproveOptions(ctx, text, contextOrNil(&rc), numOptions)
				})
			}
			return opts.runRefine(cmd.Context(), format, "Improving...", func(ctx context.Context) models.TextImprovementResult {
				return svc.ImproveOne(ctx, text, contextOrNil(&rc))
			})
		},
	}

	cmd.Flags().IntVar(&numOptions, "options", 0, "Number of alternative phrasings (0 = single rewrite)")
	addContextFlags(cmd.Flags(), &rc)
	return cmd
}
