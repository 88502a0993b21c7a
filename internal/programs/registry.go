package programs

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// Kind names a program variant.
type Kind string

const (
	KindCopy      Kind = "copy"
	KindMarkup    Kind = "markup"
	KindTemplated Kind = "templated"
	KindExec      Kind = "exec"
)

// ProgramsKey is the config key holding the pattern to program mapping.
const ProgramsKey = "programs"

const execPrefix = "exec:"

// DefaultPrograms applies when neither the root config nor a directory
// config maps a pattern.
var DefaultPrograms = map[string]string{
	"*.md":  string(KindMarkup),
	"*.rst": string(KindMarkup),
}

// Spec is a parsed program specification such as "markup" or
// "exec:lessc %.less %.css".
type Spec struct {
	Kind    Kind
	Command *CommandTemplate
}

// ParseSpec parses a program specification.
func ParseSpec(raw string) (Spec, error) {
	raw = strings.TrimSpace(raw)
	if cmd, ok := strings.CutPrefix(raw, execPrefix); ok {
		t, err := ParseCommand(strings.TrimSpace(cmd))
		if err != nil {
			return Spec{}, err
		}
		return Spec{Kind: KindExec, Command: t}, nil
	}
	switch Kind(raw) {
	case KindCopy, KindMarkup, KindTemplated:
		return Spec{Kind: Kind(raw)}, nil
	default:
		return Spec{}, errors.ConfigError(fmt.Sprintf("unknown program %q", raw)).
			WithContext("valid", "copy, markup, templated, exec:<command>").
			Build()
	}
}

// Registry binds source files to programs using glob patterns from the
// cascaded config.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry validates every pattern and program in root, which holds the
// root-level programs mapping.
func NewRegistry(root map[string]string) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec)}
	for _, mapping := range []map[string]string{DefaultPrograms, root} {
		for pattern, raw := range mapping {
			if _, err := r.validate(pattern, raw); err != nil {
				return nil, errors.WrapError(err, errors.GetCategory(err), "invalid programs entry").
					WithContext("pattern", pattern).
					Build()
			}
		}
	}
	return r, nil
}

func (r *Registry) validate(pattern, raw string) (Spec, error) {
	if !doublestar.ValidatePattern(pattern) {
		return Spec{}, errors.ConfigError(fmt.Sprintf("invalid program pattern %q", pattern)).Build()
	}
	if spec, ok := r.specs[raw]; ok {
		return spec, nil
	}
	spec, err := ParseSpec(raw)
	if err != nil {
		return Spec{}, err
	}
	r.specs[raw] = spec
	return spec, nil
}

// Resolve returns the program spec for doc. The document config's programs
// mapping is layered over the defaults; the most specific matching pattern
// wins and unmatched files are copied.
func (r *Registry) Resolve(doc *document.Context) (Spec, string, error) {
	mapping := make(map[string]string, len(DefaultPrograms))
	for k, v := range DefaultPrograms {
		mapping[k] = v
	}
	for k, v := range doc.Config.Mapping(ProgramsKey) {
		mapping[k] = fmt.Sprint(v)
	}

	base := path.Base(doc.SourceFilename)
	for _, pattern := range orderPatterns(mapping) {
		if !matches(pattern, doc.SourceFilename, base) {
			continue
		}
		spec, err := r.validate(pattern, mapping[pattern])
		if err != nil {
			return Spec{}, "", errors.WrapError(err, errors.GetCategory(err), "invalid programs entry").
				WithSource(doc.SourceFilename).
				WithContext("pattern", pattern).
				Build()
		}
		return spec, pattern, nil
	}
	return Spec{Kind: KindCopy}, "", nil
}

// Select resolves and instantiates the program for doc.
func (r *Registry) Select(doc *document.Context) (Program, Spec, error) {
	spec, _, err := r.Resolve(doc)
	if err != nil {
		return nil, Spec{}, err
	}
	return New(doc, spec), spec, nil
}

// New instantiates spec for doc.
func New(doc *document.Context, spec Spec) Program {
	switch spec.Kind {
	case KindMarkup:
		return NewMarkup(doc)
	case KindTemplated:
		return NewTemplated(doc)
	case KindExec:
		return NewExecFromTemplate(doc, spec.Command)
	default:
		return NewCopy(doc)
	}
}

func matches(pattern, rel, base string) bool {
	if ok, _ := doublestar.Match(pattern, rel); ok {
		return true
	}
	ok, _ := doublestar.Match(pattern, base)
	return ok
}

// orderPatterns puts longer, more specific patterns first and breaks ties
// lexically so selection is deterministic.
func orderPatterns(mapping map[string]string) []string {
	patterns := make([]string, 0, len(mapping))
	for p := range mapping {
		patterns = append(patterns, p)
	}
	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i]) != len(patterns[j]) {
			return len(patterns[i]) > len(patterns[j])
		}
		return patterns[i] < patterns[j]
	})
	return patterns
}
