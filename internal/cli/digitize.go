// internal/cli/digitize.go
package cli

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/edulab-kr/evalassist/internal/models"
	"github.com/edulab-kr/evalassist/internal/services"
	"github.com/spf13/cobra"
)

// errRemoteFailed 结果已输出，只需要非零退出码
var errRemoteFailed = errors.New("remote call failed")

func newDigitizeCmd(opts *Options) *cobra.Command {
	var htmlOnly bool

	cmd := &cobra.Command{
		Use:   "digitize FILE",
		Short: "Convert a .hwp or .pdf document to HTML",
		Long: `Upload a local document to the digitization endpoint and print the HTML it returns.

Examples:
  # Human-readable summary followed by the HTML
  evalctl digitize plan.pdf

  # Only the HTML, for piping into a file
  evalctl digitize plan.hwp --html-only > plan.html

  # Full envelope as JSON
  evalctl digitize plan.pdf -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigitize(cmd.Context(), opts, args[0], htmlOnly)
		},
	}

	cmd.Flags().BoolVar(&htmlOnly, "html-only", false, "Print only the extracted HTML")
	return cmd
}

func runDigitize(ctx context.Context, opts *Options, path string, htmlOnly bool) error {
	format, err := opts.OutputFormat()
	if err != nil {
		return err
	}
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	svc, err := services.NewDocumentService(cfg)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout())
	defer cancel()

	var result models.AnalysisResult
	withSpinner(format, opts.ErrOut, "Digitizing "+filepath.Base(path)+"...", func() {
		result = svc.Analyze(ctx, path)
	})

	printer := &Printer{Format: format, Out: opts.Out}
	if !result.Success {
		if err := printer.Print(result, renderDocument(nil, &result, htmlOnly)); err != nil {
			return err
		}
		return errRemoteFailed
	}

	info, _ := svc.FileInfo(path)
	view := &models.DocumentView{
		Success:          true,
		HTMLContent:      services.ExtractHTML(result),
		FileInfo:         info,
		OriginalFilename: filepath.Base(path),
		FullAPIResponse:  &result,
	}
	if htmlOnly && format != "human" {
		return printer.Print(map[string]string{"html_content": view.HTMLContent}, nil)
	}
	return printer.Print(view, renderDocument(view, nil, htmlOnly))
}
