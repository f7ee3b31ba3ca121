// Package prompts builds evaluator instructions for the grading model.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"sync"
	"text/template"
)

//go:embed templates/*.txt
var templateFS embed.FS

// Variant selects the grading strictness of the evaluator prompt.
type Variant string

const (
	// VariantStrict grades with no benefit of the doubt, for majors.
	VariantStrict Variant = "strict"
	// VariantStandard is the default grading variant.
	VariantStandard Variant = "standard"
	// VariantLenient grades generously, for electives.
	VariantLenient Variant = "lenient"
)

var validVariants = map[Variant]bool{
	VariantStrict:   true,
	VariantStandard: true,
	VariantLenient:  true,
}

// IsValidVariant checks if a variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[Variant(v)]
}

// Data holds template data for evaluator prompts. The context fields
// are optional; when set they are echoed to the model so transcription
// stays anchored to the right exam.
type Data struct {
	SubjectCode string
	ExamName    string
}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Variant]*template.Template
)

func load() error {
	loadOnce.Do(func() {
		templates = make(map[Variant]*template.Template)
		for v := range validVariants {
			name := "eval_" + string(v) + ".txt"
			content, err := templateFS.ReadFile("templates/" + name)
			if err != nil {
				loadErr = errors.New("failed to read prompt file " + name + ": " + err.Error())
				return
			}
			tmpl, err := template.New("eval").Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + name + ": " + err.Error())
				return
			}
			templates[v] = tmpl
		}
	})
	return loadErr
}

// Build renders the evaluator prompt for the given variant.
func Build(variant Variant, data Data) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	tmpl, ok := templates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
