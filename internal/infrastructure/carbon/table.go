package carbon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed intensities.yaml
var defaultTableYAML []byte

type Modifiers struct {
	Local    float64 `yaml:"local"`
	Organic  float64 `yaml:"organic"`
	Imported float64 `yaml:"imported"`
}

type Entry struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

type CategoryFallback struct {
	Keywords  []string `yaml:"keywords"`
	Intensity float64  `yaml:"intensity"`
}

type ReportCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type Substitution struct {
	Keywords     []string `yaml:"keywords"`
	Alternatives []string `yaml:"alternatives"`
}

type tableFile struct {
	DefaultIntensity  float64            `yaml:"default_intensity"`
	Modifiers         Modifiers          `yaml:"modifiers"`
	Intensities       []Entry            `yaml:"intensities"`
	CategoryFallbacks []CategoryFallback `yaml:"category_fallbacks"`
	ReportCategories  []ReportCategory   `yaml:"report_categories"`
	Substitutions     []Substitution     `yaml:"substitutions"`
}

// Table is the read-only intensity data shared by every estimation. It is
// built once and never mutated, so one instance serves concurrent callers.
type Table struct {
	defaultIntensity float64
	modifiers        Modifiers
	entries          []Entry
	exact            map[string]float64
	fallbacks        []CategoryFallback
	categories       []ReportCategory
	substitutions    []Substitution
}

// LoadTable reads a YAML table from path, or the embedded default when path is empty.
func LoadTable(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return ParseTable(defaultTableYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read carbon table: %w", err)
	}
	return ParseTable(data)
}

func DefaultTable() *Table {
	t, err := ParseTable(defaultTableYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded carbon table: %v", err))
	}
	return t
}

func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode carbon table: %w", err)
	}
	if f.DefaultIntensity <= 0 {
		return nil, fmt.Errorf("carbon table: default_intensity must be positive")
	}
	if f.Modifiers.Local <= 0 || f.Modifiers.Organic <= 0 || f.Modifiers.Imported <= 0 {
		return nil, fmt.Errorf("carbon table: modifiers must be positive")
	}
	if len(f.Intensities) == 0 {
		return nil, fmt.Errorf("carbon table: no intensities")
	}

	t := &Table{
		defaultIntensity: f.DefaultIntensity,
		modifiers:        f.Modifiers,
		entries:          make([]Entry, 0, len(f.Intensities)),
		exact:            make(map[string]float64, len(f.Intensities)),
		fallbacks:        lowerFallbacks(f.CategoryFallbacks),
		categories:       lowerCategories(f.ReportCategories),
		substitutions:    f.Substitutions,
	}
	for i, e := range f.Intensities {
		name := strings.ToLower(strings.TrimSpace(e.Name))
		if name == "" || e.Value < 0 {
			return nil, fmt.Errorf("carbon table: invalid intensity entry %d", i)
		}
		if _, dup := t.exact[name]; dup {
			return nil, fmt.Errorf("carbon table: duplicate intensity %q", name)
		}
		t.entries = append(t.entries, Entry{Name: name, Value: e.Value})
		t.exact[name] = e.Value
	}
	return t, nil
}

func (t *Table) Len() int {
	return len(t.entries)
}

func lowerFallbacks(in []CategoryFallback) []CategoryFallback {
	out := make([]CategoryFallback, 0, len(in))
	for _, f := range in {
		out = append(out, CategoryFallback{Keywords: lowerAll(f.Keywords), Intensity: f.Intensity})
	}
	return out
}

func lowerCategories(in []ReportCategory) []ReportCategory {
	out := make([]ReportCategory, 0, len(in))
	for _, c := range in {
		out = append(out, ReportCategory{Name: c.Name, Keywords: lowerAll(c.Keywords)})
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
