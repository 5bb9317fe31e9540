package statement

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLabelsMergesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	content := "sections:\n  a: Revenue\nsubcategories:\n  B-03: Client support\n  B-09: Capital grants\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write labels: %v", err)
	}
	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("load labels: %v", err)
	}
	if got := labels.SectionName("A"); got != "Revenue" {
		t.Fatalf("expected section override got %q", got)
	}
	if got := labels.SectionName("B"); got != "Expenditures" {
		t.Fatalf("expected default section name got %q", got)
	}
	if got := labels.SubcategoryName("B-03", nil); got != "Client support" {
		t.Fatalf("expected subcategory override got %q", got)
	}
	if got := labels.SubcategoryName("B-01", nil); got != "Human Resources + BONUS" {
		t.Fatalf("expected fixed label got %q", got)
	}
	if got := labels.SubcategoryName("B-07", nil); got != "B-07" {
		t.Fatalf("expected raw code fallback got %q", got)
	}
	if got := labels.SubcategoryName("B-01", map[string]string{"B-01": "HR"}); got != "HR" {
		t.Fatalf("request overrides win, got %q", got)
	}
}

func TestLoadLabelsDefaultsAndErrors(t *testing.T) {
	labels, err := LoadLabels("")
	if err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if labels.SubcategoryName("B-05", nil) != "Transfer to other reporting entities" {
		t.Fatalf("expected defaults for empty path")
	}
	if _, err := LoadLabels(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("sections: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadLabels(bad); err == nil {
		t.Fatalf("expected parse error")
	}
}
