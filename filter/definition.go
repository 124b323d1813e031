package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/bidicheck/report"
)

var (
	// ErrUnknownOpcode is returned for a definition with an unrecognized opcode.
	ErrUnknownOpcode = errors.New("filter: unknown opcode")
	// ErrMissingField is returned when an opcode's required field is absent.
	ErrMissingField = errors.New("filter: missing field")
)

// Opcodes of the definition format.
const (
	OpAnd                  = "AND"
	OpOr                   = "OR"
	OpNot                  = "NOT"
	OpAtText               = "AT_TEXT"
	OpAtTextRegexp         = "AT_TEXT_REGEXP"
	OpFollowedByText       = "FOLLOWED_BY_TEXT"
	OpFollowedByTextRegexp = "FOLLOWED_BY_TEXT_REGEXP"
	OpPrecededByText       = "PRECEDED_BY_TEXT"
	OpPrecededByTextRegexp = "PRECEDED_BY_TEXT_REGEXP"
	OpLocationClass        = "LOCATION_CLASS"
	OpLocationClassRegexp  = "LOCATION_CLASS_REGEXP"
	OpLocationID           = "LOCATION_ID"
	OpLocationIDRegexp     = "LOCATION_ID_REGEXP"
	OpSeverity             = "SEVERITY"
	OpType                 = "TYPE"
)

// Definition is a filter described as data. Only the fields of its opcode
// are read.
type Definition struct {
	Opcode string `json:"opcode" yaml:"opcode"`

	Fst       *Definition `json:"fst,omitempty" yaml:"fst,omitempty"`
	Snd       *Definition `json:"snd,omitempty" yaml:"snd,omitempty"`
	Subfilter *Definition `json:"subfilter,omitempty" yaml:"subfilter,omitempty"`

	AtText               *string `json:"atText,omitempty" yaml:"atText,omitempty"`
	AtTextRegexp         *string `json:"atTextRegexp,omitempty" yaml:"atTextRegexp,omitempty"`
	FollowedByText       *string `json:"followedByText,omitempty" yaml:"followedByText,omitempty"`
	FollowedByTextRegexp *string `json:"followedByTextRegexp,omitempty" yaml:"followedByTextRegexp,omitempty"`
	PrecededByText       *string `json:"precededByText,omitempty" yaml:"precededByText,omitempty"`
	PrecededByTextRegexp *string `json:"precededByTextRegexp,omitempty" yaml:"precededByTextRegexp,omitempty"`
	ClassName            *string `json:"className,omitempty" yaml:"className,omitempty"`
	ClassRegexp          *string `json:"classRegexp,omitempty" yaml:"classRegexp,omitempty"`
	ID                   *string `json:"id,omitempty" yaml:"id,omitempty"`
	IDRegexp             *string `json:"idRegexp,omitempty" yaml:"idRegexp,omitempty"`
	SeverityFrom         *int    `json:"severityFrom,omitempty" yaml:"severityFrom,omitempty"`
	Type                 *string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Build constructs the filter a definition describes.
func Build(d *Definition) (Filter, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: filter definition", ErrMissingField)
	}
	op := strings.ToUpper(strings.TrimSpace(d.Opcode))

	sub := func(name string, def *Definition) (Filter, error) {
		if def == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingField, op, name)
		}
		f, err := Build(def)
		if err != nil {
			return nil, fmt.Errorf("filter: %s.%s: %w", op, name, err)
		}
		return f, nil
	}
	str := func(name string, v *string) (string, error) {
		if v == nil {
			return "", fmt.Errorf("%w: %s.%s", ErrMissingField, op, name)
		}
		return *v, nil
	}
	text := func(name string, v *string, mk func(string) Filter) (Filter, error) {
		s, err := str(name, v)
		if err != nil {
			return nil, err
		}
		return mk(s), nil
	}
	pattern := func(name string, v *string, mk func(string) (Filter, error)) (Filter, error) {
		s, err := str(name, v)
		if err != nil {
			return nil, err
		}
		return mk(s)
	}

	switch op {
	case OpAnd, OpOr:
		fst, err := sub("fst", d.Fst)
		if err != nil {
			return nil, err
		}
		snd, err := sub("snd", d.Snd)
		if err != nil {
			return nil, err
		}
		if op == OpAnd {
			return And(fst, snd), nil
		}
		return Or(fst, snd), nil
	case OpNot:
		f, err := sub("subfilter", d.Subfilter)
		if err != nil {
			return nil, err
		}
		return Not(f), nil
	case OpAtText:
		return text("atText", d.AtText, AtText)
	case OpAtTextRegexp:
		return pattern("atTextRegexp", d.AtTextRegexp, AtTextRegexp)
	case OpFollowedByText:
		return text("followedByText", d.FollowedByText, FollowedByText)
	case OpFollowedByTextRegexp:
		return pattern("followedByTextRegexp", d.FollowedByTextRegexp, FollowedByTextRegexp)
	case OpPrecededByText:
		return text("precededByText", d.PrecededByText, PrecededByText)
	case OpPrecededByTextRegexp:
		return pattern("precededByTextRegexp", d.PrecededByTextRegexp, PrecededByTextRegexp)
	case OpLocationClass:
		return text("className", d.ClassName, LocationClass)
	case OpLocationClassRegexp:
		return pattern("classRegexp", d.ClassRegexp, LocationClassRegexp)
	case OpLocationID:
		return text("id", d.ID, LocationID)
	case OpLocationIDRegexp:
		return pattern("idRegexp", d.IDRegexp, LocationIDRegexp)
	case OpSeverity:
		if d.SeverityFrom == nil {
			return nil, fmt.Errorf("%w: %s.severityFrom", ErrMissingField, op)
		}
		return SeverityFrom(report.Severity(*d.SeverityFrom)), nil
	case OpType:
		return text("type", d.Type, Type)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOpcode, d.Opcode)
}

// BuildAll constructs every definition, failing on the first bad one.
func BuildAll(defs []*Definition) ([]Filter, error) {
	out := make([]Filter, 0, len(defs))
	for i, d := range defs {
		f, err := Build(d)
		if err != nil {
			return nil, fmt.Errorf("filter: definition %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// ParseJSON decodes a JSON filter definition or an array of them.
func ParseJSON(data []byte) ([]Filter, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var defs []*Definition
	if data[0] == '[' {
		if err := json.Unmarshal(data, &defs); err != nil {
			return nil, fmt.Errorf("filter: decode json: %w", err)
		}
	} else {
		var d Definition
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("filter: decode json: %w", err)
		}
		defs = []*Definition{&d}
	}
	return BuildAll(defs)
}

// ParseYAML decodes a YAML filter definition or a sequence of them.
func ParseYAML(data []byte) ([]Filter, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("filter: decode yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	doc := node.Content[0]
	var defs []*Definition
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&defs); err != nil {
			return nil, fmt.Errorf("filter: decode yaml: %w", err)
		}
	case yaml.MappingNode:
		var d Definition
		if err := doc.Decode(&d); err != nil {
			return nil, fmt.Errorf("filter: decode yaml: %w", err)
		}
		defs = []*Definition{&d}
	default:
		return nil, fmt.Errorf("filter: decode yaml: expected a mapping or a sequence")
	}
	return BuildAll(defs)
}

// LoadFile reads filters from a .json, .yaml or .yml file.
func LoadFile(path string) ([]Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filter: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	}
	return nil, fmt.Errorf("filter: %s: unsupported extension", path)
}
