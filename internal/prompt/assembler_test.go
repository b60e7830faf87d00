package prompt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-inspection-gateway/internal/storage"
)

func newFileAssembler(t *testing.T, files map[string]string) *Assembler {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write template: %v", err)
		}
	}
	return NewAssembler(storage.NewFileTemplateSource(dir))
}

func TestAssemble_DefaultTemplateSubstitution(t *testing.T) {
	assembler := newFileAssembler(t, nil)

	got := assembler.Assemble(context.Background(), "cloud", "鋼筋", "項目A")

	if strings.Contains(got, "{{TYPE_NAME}}") || strings.Contains(got, "{{CHECKLIST}}") {
		t.Error("Expected no literal placeholders in assembled prompt")
	}
	if !strings.Contains(got, "鋼筋") {
		t.Error("Expected type name substituted into prompt")
	}
	if !strings.Contains(got, "項目A") {
		t.Error("Expected checklist text substituted into prompt")
	}
}

func TestAssemble_ProviderTemplateOverride(t *testing.T) {
	assembler := newFileAssembler(t, map[string]string{
		"cloud_analysis_prompt.txt": "檢查 {{TYPE_NAME}}：{{CHECKLIST}}",
	})

	got := assembler.Assemble(context.Background(), "cloud", "模板工程", "垂直精度")
	if got != "檢查 模板工程：垂直精度" {
		t.Errorf("Expected override template applied, got %q", got)
	}

	// Local has no override and falls back to the default
	local := assembler.Assemble(context.Background(), "local", "模板工程", "垂直精度")
	if !strings.Contains(local, "【可用檢查項目及標準】") {
		t.Error("Expected default template for provider without override")
	}
}

func TestAssemble_PlaceholderVariants(t *testing.T) {
	assembler := newFileAssembler(t, map[string]string{
		"local_analysis_prompt.txt": "{{ type_name }} / {{TYPE_NAME}} / {{ Checklist }}",
	})

	got := assembler.Assemble(context.Background(), "local", "A", "B")
	if got != "A / A / B" {
		t.Errorf("Expected case-insensitive whitespace-tolerant substitution, got %q", got)
	}
}

func TestAssemble_BlankTypeNameUsesGenericLabel(t *testing.T) {
	assembler := newFileAssembler(t, map[string]string{
		"cloud_analysis_prompt.txt": "[{{TYPE_NAME}}]",
	})

	got := assembler.Assemble(context.Background(), "cloud", "   ", "")
	if got != "["+DefaultTypeName+"]" {
		t.Errorf("Expected generic type label, got %q", got)
	}
}

func TestAssemble_EveryOccurrenceReplaced(t *testing.T) {
	assembler := newFileAssembler(t, map[string]string{
		"cloud_analysis_prompt.txt": "{{TYPE_NAME}} {{TYPE_NAME}} {{TYPE_NAME}}",
	})

	got := assembler.Assemble(context.Background(), "cloud", "X", "")
	if got != "X X X" {
		t.Errorf("Expected all occurrences replaced, got %q", got)
	}
}

func TestAssemble_UnknownProviderUsesDefault(t *testing.T) {
	assembler := newFileAssembler(t, map[string]string{
		"cloud_analysis_prompt.txt": "override",
	})

	got := assembler.Assemble(context.Background(), "other", "X", "Y")
	if !strings.Contains(got, "品質檢查員") {
		t.Error("Expected default template for unknown provider")
	}
}
