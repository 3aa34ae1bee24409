package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edulab-kr/evalassist/internal/models"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

func init() {
	color.NoColor = true
}

// runCLI 执行根命令，返回标准输出和标准错误
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd("v9.9.9")
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func fakeCompletionServer(t *testing.T, reply string) (*httptest.Server, *[]string) {
	t.Helper()
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer cli-key" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"bad key"}`))
			return
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) > 0 {
			prompts = append(prompts, req.Messages[0].Content)
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &prompts
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "evalctl version v9.9.9\n" {
		t.Errorf("got %q", out)
	}
}

func TestImproveJSONOutput(t *testing.T) {
	srv, prompts := fakeCompletionServer(t, "물을 절약하여 사용하기")
	t.Setenv("UPSTAGE_API_KEY", "")
	t.Setenv("UPSTAGE_BASE_URL", srv.URL)

	out, _, err := runCLI(t, "improve", "물을 아껴 쓰기", "--api-key", "cli-key", "-o", "json", "--subject", "과학")
	if err != nil {
		t.Fatalf("improve: %v", err)
	}

	var got models.TextImprovementResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, out)
	}
	if !got.Success || got.Improved != "물을 절약하여 사용하기" {
		t.Errorf("got %+v", got)
	}
	if len(*prompts) != 1 || !strings.Contains((*prompts)[0], "- 과목: 과학") {
		t.Errorf("prompts: %q", *prompts)
	}
}

func TestImproveOptionsHumanOutput(t *testing.T) {
	srv, _ := fakeCompletionServer(t, "가\n나")
	t.Setenv("UPSTAGE_API_KEY", "cli-key")
	t.Setenv("UPSTAGE_BASE_URL", srv.URL)

	out, _, err := runCLI(t, "improve", "원문", "--options", "3")
	if err != nil {
		t.Fatalf("improve --options: %v", err)
	}
	for _, want := range []string{"1. 가", "2. 나", "3. 원문"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRemoteFailureExitsNonZero(t *testing.T) {
	srv, _ := fakeCompletionServer(t, "unused")
	t.Setenv("UPSTAGE_API_KEY", "")
	t.Setenv("UPSTAGE_BASE_URL", srv.URL)

	out, _, err := runCLI(t, "improve", "문장", "--api-key", "wrong", "-o", "yaml")
	if !errors.Is(err, errRemoteFailed) {
		t.Fatalf("got %v, want errRemoteFailed", err)
	}

	var got models.TextImprovementResult
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("stdout is not YAML: %v", err)
	}
	if got.Success || !strings.Contains(got.Error, "401") {
		t.Errorf("got %+v", got)
	}
}

func TestMissingAPIKeyFailsBeforeAnyCall(t *testing.T) {
	t.Setenv("UPSTAGE_API_KEY", "")

	_, _, err := runCLI(t, "improve", "문장")
	if err == nil || !strings.Contains(err.Error(), "UPSTAGE_API_KEY") {
		t.Errorf("got %v", err)
	}
}

func TestConfigFileSuppliesSettings(t *testing.T) {
	srv, _ := fakeCompletionServer(t, "잘함: 물을 절약한다.")
	t.Setenv("UPSTAGE_API_KEY", "")
	t.Setenv("UPSTAGE_BASE_URL", "")

	path := filepath.Join(t.TempDir(), "evalctl.yaml")
	content := "api_key: cli-key\nbase_url: " + srv.URL + "\noutput: json\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, "criteria", "물을 절약하여 사용하기", "--config", path, "--existing", "보통=물을 아껴 쓸 수 있다.")
	if err != nil {
		t.Fatalf("criteria: %v", err)
	}

	var got struct {
		Success       bool              `json:"success"`
		Criteria      map[string]string `json:"criteria"`
		MissingLevels []string          `json:"missing_levels"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, out)
	}
	if !got.Success || got.Criteria["잘함"] != "물을 절약한다." || len(got.MissingLevels) != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestCriterionRejectsUnknownLevel(t *testing.T) {
	t.Setenv("UPSTAGE_API_KEY", "cli-key")

	_, _, err := runCLI(t, "criterion", "최고", "물을 절약하여 사용하기")
	if err == nil || !strings.Contains(err.Error(), "unknown level") {
		t.Errorf("got %v", err)
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	t.Setenv("UPSTAGE_API_KEY", "cli-key")

	_, _, err := runCLI(t, "improve", "문장", "-o", "xml")
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Errorf("got %v", err)
	}
}

func TestDigitizeHTMLOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":{"html":"<table><tr><td>평가</td></tr></table>"}}`))
	}))
	defer srv.Close()
	t.Setenv("UPSTAGE_API_KEY", "cli-key")
	t.Setenv("UPSTAGE_DIGITIZE_URL", srv.URL)

	path := filepath.Join(t.TempDir(), "plan.pdf")
	os.WriteFile(path, []byte("%PDF"), 0644)

	out, _, err := runCLI(t, "digitize", path, "--html-only")
	if err != nil {
		t.Fatalf("digitize: %v", err)
	}
	if out != "<table><tr><td>평가</td></tr></table>\n" {
		t.Errorf("got %q", out)
	}

	out, _, err = runCLI(t, "digitize", path, "-o", "json")
	if err != nil {
		t.Fatalf("digitize -o json: %v", err)
	}
	var view models.DocumentView
	json.Unmarshal([]byte(out), &view)
	if !view.Success || view.OriginalFilename != "plan.pdf" || view.FileInfo == nil || view.FileInfo.Size != 4 {
		t.Errorf("got %+v", view)
	}
}

func TestDigitizeFailure(t *testing.T) {
	t.Setenv("UPSTAGE_API_KEY", "cli-key")

	out, _, err := runCLI(t, "digitize", filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, errRemoteFailed) {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(out, "✗ Failed") || !strings.Contains(out, "missing.pdf") {
		t.Errorf("got %q", out)
	}
}

func TestParseExisting(t *testing.T) {
	set, err := parseExisting(map[string]string{"보통": "a", "노력요함": "b"})
	if err != nil {
		t.Fatalf("parseExisting: %v", err)
	}
	if set[models.LevelFair] != "a" || set[models.LevelNeedsWork] != "b" {
		t.Errorf("got %v", set)
	}

	if set, err := parseExisting(nil); set != nil || err != nil {
		t.Errorf("empty: got %v, %v", set, err)
	}
	if _, err := parseExisting(map[string]string{"good": "x"}); err == nil {
		t.Error("unknown level should be rejected")
	}
}

func TestPrinterFormats(t *testing.T) {
	result := models.TextImprovementResult{
		Success:  true,
		Criteria: models.CriteriaSet{models.LevelGood: "B", models.LevelExcellent: "A"},
	}

	var buf bytes.Buffer
	(&Printer{Format: "human", Out: &buf}).Print(result, renderRefine(result))
	if got := buf.String(); got != "[매우잘함] A\n[잘함] B\n" {
		t.Errorf("human: got %q", got)
	}

	buf.Reset()
	(&Printer{Format: "json", Out: &buf}).Print(result, nil)
	if !strings.Contains(buf.String(), `"잘함": "B"`) {
		t.Errorf("json: got %s", buf.String())
	}

	buf.Reset()
	(&Printer{Format: "yaml", Out: &buf}).Print(result, nil)
	if !strings.Contains(buf.String(), "success: true") {
		t.Errorf("yaml: got %s", buf.String())
	}
}
