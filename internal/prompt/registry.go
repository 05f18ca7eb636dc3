package prompt

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultName is the template substituted when an unknown name is requested.
// The fallback is silent: lenient lookup is the intended policy here.
const DefaultName = "ta_friendly"

var builtins = map[string]string{
	"ta_friendly": `You are a friendly, patient CS course TA. Speak naturally like in-office-hours.
Use the provided course materials as the source of truth.
If the materials don't contain the answer, say you're not sure and suggest where to check.
Do NOT sound like a formal report. No section headings like 'Answer:' or 'Policy:'.
Keep it concise but include the key details (deadlines, penalties, required actions).`,

	"ta_strict": `You are a CS course TA.
Be conservative and precise.
Only answer if the information is explicitly present in the context.
If unsure, say you don't see it specified in the materials.
Avoid adding extra interpretation.`,

	"professor_brief": `You are the course instructor. Speak briefly and directly.
Use course materials as the source of truth. No fluff, no headings.`,
}

// Registry maps prompt names to instruction text. Built-in templates can be
// overlaid from a YAML file; entries are immutable after construction.
type Registry struct {
	templates map[string]string
}

func NewRegistry() *Registry {
	templates := make(map[string]string, len(builtins))
	for name, text := range builtins {
		templates[name] = text
	}
	return &Registry{templates: templates}
}

// NewRegistryFromFile overlays templates from a YAML mapping of name to
// instruction text on top of the built-ins. An empty path yields the
// built-ins only.
func NewRegistryFromFile(path string) (*Registry, error) {
	reg := NewRegistry()
	if path == "" {
		return reg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	overlay := map[string]string{}
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return nil, fmt.Errorf("parse prompt file: %w", err)
	}
	for name, text := range overlay {
		name = strings.TrimSpace(name)
		if name == "" || strings.TrimSpace(text) == "" {
			continue
		}
		reg.templates[name] = text
	}
	return reg, nil
}

// Get returns the named template, or the default template when the name is
// unknown or empty.
func (r *Registry) Get(name string) string {
	if text, ok := r.templates[name]; ok {
		return text
	}
	return r.templates[DefaultName]
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compose concatenates the instruction text and the student question into
// the model input. Context injection happens later, in the generator.
func Compose(instruction, question string) string {
	return strings.TrimSpace(instruction) + "\n\nStudent question: " + strings.TrimSpace(question)
}
