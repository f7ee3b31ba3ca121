package prompts

import (
	"strings"
	"testing"
)

func TestIsValidVariant(t *testing.T) {
	tests := []struct {
		variant string
		want    bool
	}{
		{"strict", true},
		{"standard", true},
		{"lenient", true},
		{"", false},
		{"Strict", false},
		{"harsh", false},
	}

	for _, tt := range tests {
		if got := IsValidVariant(tt.variant); got != tt.want {
			t.Errorf("IsValidVariant(%q) = %v, want %v", tt.variant, got, tt.want)
		}
	}
}

func TestBuildAllVariants(t *testing.T) {
	for _, v := range []Variant{VariantStrict, VariantStandard, VariantLenient} {
		t.Run(string(v), func(t *testing.T) {
			prompt, err := Build(v, Data{})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			for _, want := range []string{
				"Question Paper",
				"Answer Key",
				"Answer Sheet",
				"Transcribe",
				"JSON",
				"marksAwarded",
			} {
				if !strings.Contains(prompt, want) {
					t.Errorf("prompt missing %q", want)
				}
			}
		})
	}
}

func TestBuildIncludesExamContext(t *testing.T) {
	prompt, err := Build(VariantStandard, Data{SubjectCode: "CS501", ExamName: "Midterm1"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(prompt, "CS501") {
		t.Error("prompt should mention the subject code")
	}
	if !strings.Contains(prompt, "Midterm1") {
		t.Error("prompt should mention the exam name")
	}

	bare, err := Build(VariantStandard, Data{})
	if err != nil {
		t.Fatalf("Build without context: %v", err)
	}
	if strings.Contains(bare, "The exam being graded is") {
		t.Error("prompt should omit the context line when no context is set")
	}
}

func TestBuildInvalidVariant(t *testing.T) {
	if _, err := Build(Variant("harsh"), Data{}); err == nil {
		t.Error("expected error for unknown variant")
	}
}
