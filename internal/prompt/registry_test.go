package prompt

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func TestGetFallsBackToDefault(t *testing.T) {
	reg := NewRegistry()

	def := reg.Get(DefaultName)
	if def == "" {
		t.Fatalf("default template must not be empty")
	}
	if got := reg.Get("nonexistent"); got != def {
		t.Fatalf("unknown name must fall back to default template")
	}
	if got := reg.Get(""); got != def {
		t.Fatalf("empty name must fall back to default template")
	}
	if got := reg.Get("ta_strict"); got == def {
		t.Fatalf("known name must not fall back")
	}
}

func TestListIsSorted(t *testing.T) {
	names := NewRegistry().List()
	if len(names) < 2 {
		t.Fatalf("expected multiple built-in prompts, got %v", names)
	}
	if !sort.StringsAreSorted(names) {
		t.Fatalf("expected sorted names, got %v", names)
	}
}

func TestNewRegistryFromFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "ta_friendly: |\n  Custom TA voice.\nexam_mode: |\n  Only answer exam logistics questions.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write prompt file: %v", err)
	}

	reg, err := NewRegistryFromFile(path)
	if err != nil {
		t.Fatalf("NewRegistryFromFile() error = %v", err)
	}
	if !strings.Contains(reg.Get("ta_friendly"), "Custom TA voice") {
		t.Fatalf("overlay must replace built-in template")
	}
	if !strings.Contains(reg.Get("exam_mode"), "exam logistics") {
		t.Fatalf("overlay must add new template")
	}
	if reg.Get("ta_strict") == "" {
		t.Fatalf("built-ins must survive overlay")
	}
}

func TestNewRegistryFromFileMissing(t *testing.T) {
	if _, err := NewRegistryFromFile("/nonexistent/prompts.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestCompose(t *testing.T) {
	got := Compose("  Be brief.  ", "  What is the late penalty?  ")
	want := "Be brief.\n\nStudent question: What is the late penalty?"
	if got != want {
		t.Fatalf("Compose() = %q, want %q", got, want)
	}
}
