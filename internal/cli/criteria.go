// internal/cli/criteria.go
package cli

import (
	"context"
	"fmt"

	"github.com/edulab-kr/evalassist/internal/models"
	"github.com/spf13/cobra"
)

// parseExisting 把 --existing level=text 转成 CriteriaSet，拒绝未知等级
func parseExisting(raw map[string]string) (models.CriteriaSet, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	set := make(models.CriteriaSet, len(raw))
	for name, text := range raw {
		level, ok := models.ParseLevel(name)
		if !ok {
			return nil, fmt.Errorf("unknown level %q in --existing", name)
		}
		set[level] = text
	}
	return set, nil
}

func newCriteriaCmd(opts *Options) *cobra.Command {
	var (
		existing map[string]string
		rc       models.ImprovementContext
	)

	cmd := &cobra.Command{
		Use:   "criteria ELEMENT",
		Short: "Generate criteria for all four achievement levels",
		Long: `Generate one criterion sentence for each of 매우잘함, 잘함, 보통 and 노력요함.

Examples:
  evalctl criteria "물을 절약하여 사용하기" --grade 3 --semester 1
  evalctl criteria "물을 절약하여 사용하기" --existing 보통=물을 아껴 쓸 수 있다. -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := parseExisting(existing)
			if err != nil {
				return err
			}
			svc, format, err := opts.newRefiner()
			if err != nil {
				return err
			}
			element := args[0]
			return opts.runRefine(cmd.Context(), format, "Generating criteria...", func(ctx context.Context) models.TextImprovementResult {
				return svc.GenerateCriteriaSet(ctx, element, set, contextOrNil(&rc))
			})
		},
	}

	cmd.Flags().StringToStringVar(&existing, "existing", nil, "Existing criterion to refine, as level=text (repeatable)")
	addContextFlags(cmd.Flags(), &rc)
	return cmd
}

func newCriterionCmd(opts *Options) *cobra.Command {
	var (
		original string
		rc       models.ImprovementContext
	)

	cmd := &cobra.Command{
		Use:   "criterion LEVEL ELEMENT",
		Short: "Regenerate the criterion for a single level",
		Long: `Regenerate the criterion sentence for one level (매우잘함, 잘함, 보통 or 노력요함).

Examples:
  evalctl criterion 잘함 "물을 절약하여 사용하기" --original "물을 아껴 쓸 수 있다."`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, ok := models.ParseLevel(args[0])
			if !ok {
				return fmt.Errorf("unknown level %q (want 매우잘함, 잘함, 보통 or 노력요함)", args[0])
			}
			svc, format, err := opts.newRefiner()
			if err != nil {
				return err
			}
			element := args[1]
			return opts.runRefine(cmd.Context(), format, "Generating criterion...", func(ctx context.Context) models.TextImprovementResult {
				return svc.GenerateSingleCriterion(ctx, level, element, original, contextOrNil(&rc))
			})
		},
	}

	cmd.Flags().StringVar(&original, "original", "", "Current criterion text to improve")
	addContextFlags(cmd.Flags(), &rc)
	return cmd
}
