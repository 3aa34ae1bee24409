package storage

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStageReaderAndCleanup(t *testing.T) {
	store, err := NewUploadStore(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("NewUploadStore: %v", err)
	}

	path, cleanup, err := store.StageReader(strings.NewReader("문서"), ".PDF")
	if err != nil {
		t.Fatalf("StageReader: %v", err)
	}
	if filepath.Dir(path) != store.BaseDir || !strings.HasSuffix(path, ".pdf") {
		t.Errorf("path: got %q", path)
	}
	if data, _ := os.ReadFile(path); string(data) != "문서" {
		t.Errorf("content: got %q", data)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file should be removed after cleanup, stat err = %v", err)
	}
}

func TestStageMultipartHeader(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("file", "계획서.hwp")
	part.Write([]byte("hwp-bytes"))
	writer.Close()

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("ParseMultipartForm: %v", err)
	}
	header := req.MultipartForm.File["file"][0]

	store, _ := NewUploadStore(t.TempDir())
	path, cleanup, err := store.Stage(header)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer cleanup()

	if filepath.Ext(path) != ".hwp" {
		t.Errorf("extension: got %q", filepath.Ext(path))
	}
	if data, _ := os.ReadFile(path); string(data) != "hwp-bytes" {
		t.Errorf("content: got %q", data)
	}
}

func TestSweepRemovesOnlyStaleUploads(t *testing.T) {
	store, _ := NewUploadStore(t.TempDir())

	stale, _, _ := store.StageReader(strings.NewReader("old"), ".pdf")
	fresh, _, _ := store.StageReader(strings.NewReader("new"), ".pdf")
	other := filepath.Join(store.BaseDir, "keep.txt")
	os.WriteFile(other, []byte("x"), 0644)

	old := time.Now().Add(-2 * time.Hour)
	os.Chtimes(stale, old, old)
	os.Chtimes(other, old, old)

	removed, err := store.Sweep(time.Hour)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed: got %d, want 1", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale upload should be removed")
	}
	for _, path := range []string{fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s should remain: %v", path, err)
		}
	}
}
