package cfn

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"sigs.k8s.io/yaml"
)

// Format is a template serialization format.
type Format string

const (
	// FormatJSON renders indented JSON.
	FormatJSON Format = "json"
	// FormatYAML renders YAML.
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown template format %q: must be json or yaml", s)
	}
}

// Render serializes the stack template in the given format.
func (s *Stack) Render(format Format) ([]byte, error) {
	data, err := json.MarshalIndent(s.Template(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template: %w", err)
	}
	switch format {
	case FormatJSON, "":
		return data, nil
	case FormatYAML:
		out, err := yaml.JSONToYAML(data)
		if err != nil {
			return nil, fmt.Errorf("failed to convert template to YAML: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown template format %q", format)
	}
}

// ParseTemplate decodes a JSON or YAML template document.
func ParseTemplate(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &t, nil
}

var subVarRegex = regexp.MustCompile(`\$\{([^!}][^}]*)\}`)

// Validate checks that every Ref, Fn::GetAtt, Fn::Sub variable and
// DependsOn entry points at something declared in the template.
func (s *Stack) Validate() error {
	t := s.Template()

	// Round-trip through JSON so typed slices and structs become plain values.
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}
	var doc struct {
		Parameters map[string]any `json:"Parameters"`
		Resources  map[string]struct {
			Properties any      `json:"Properties"`
			DependsOn  []string `json:"DependsOn"`
		} `json:"Resources"`
		Outputs map[string]any `json:"Outputs"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode template: %w", err)
	}

	known := func(id string) bool {
		if strings.HasPrefix(id, "AWS::") {
			return true
		}
		if _, ok := doc.Resources[id]; ok {
			return true
		}
		_, ok := doc.Parameters[id]
		return ok
	}

	var errs []error
	for _, id := range slices.Sorted(maps.Keys(doc.Resources)) {
		r := doc.Resources[id]
		for _, dep := range r.DependsOn {
			if _, ok := doc.Resources[dep]; !ok {
				errs = append(errs, fmt.Errorf("resource %s depends on unknown resource %s", id, dep))
			}
		}
		walkRefs(r.Properties, func(kind, target string) {
			if !known(target) {
				errs = append(errs, fmt.Errorf("resource %s: %s to unknown target %s", id, kind, target))
			}
		})
	}
	for _, name := range slices.Sorted(maps.Keys(doc.Outputs)) {
		walkRefs(doc.Outputs[name], func(kind, target string) {
			if !known(target) {
				errs = append(errs, fmt.Errorf("output %s: %s to unknown target %s", name, kind, target))
			}
		})
	}
	return errors.Join(errs...)
}

// walkRefs calls visit for every reference found in v.
func walkRefs(v any, visit func(kind, target string)) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if ref, ok := val["Ref"].(string); ok {
				visit("Ref", ref)
				return
			}
			if att, ok := val["Fn::GetAtt"].([]any); ok && len(att) == 2 {
				if id, ok := att[0].(string); ok {
					visit("Fn::GetAtt", id)
				}
				return
			}
			if sub, ok := val["Fn::Sub"]; ok {
				walkSub(sub, visit)
				return
			}
		}
		for _, item := range val {
			walkRefs(item, visit)
		}
	case []any:
		for _, item := range val {
			walkRefs(item, visit)
		}
	}
}

func walkSub(sub any, visit func(kind, target string)) {
	var tmpl string
	vars := map[string]any{}
	switch s := sub.(type) {
	case string:
		tmpl = s
	case []any:
		if len(s) > 0 {
			tmpl, _ = s[0].(string)
		}
		if len(s) > 1 {
			if m, ok := s[1].(map[string]any); ok {
				vars = m
				for _, item := range m {
					walkRefs(item, visit)
				}
			}
		}
	}
	for _, match := range subVarRegex.FindAllStringSubmatch(tmpl, -1) {
		name := match[1]
		if _, ok := vars[name]; ok {
			continue
		}
		// ${Resource.Attribute} is a GetAtt shorthand.
		id, _, _ := strings.Cut(name, ".")
		if strings.HasPrefix(name, "AWS::") {
			id = name
		}
		visit("Fn::Sub", id)
	}
}
