package programs

import (
	"context"
	"strings"

	"github.com/google/shlex"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/process"
)

// placeholder marks the source and destination slots of a command.
const placeholder = "%"

// CommandTemplate is a parsed external tool command.
//
// The first word starting with % is the source slot and the second is the
// destination slot. The text after % is the slot's filename suffix, so
// "lessc %.less %.css" turns style.less into style.css.
type CommandTemplate struct {
	raw               string
	argv              []string
	sourceIndex       int
	destinationIndex  int
	SourceSuffix      string
	DestinationSuffix string
}

// ParseCommand splits command shell-style and locates its two slots.
func ParseCommand(command string) (*CommandTemplate, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryCommandTemplate, "cannot parse command").
			WithContext("command", command).
			Build()
	}

	t := &CommandTemplate{raw: command, argv: argv, sourceIndex: -1, destinationIndex: -1}
	for i, part := range argv {
		if !strings.HasPrefix(part, placeholder) {
			continue
		}
		switch {
		case t.sourceIndex == -1:
			t.sourceIndex = i
			t.SourceSuffix = part[len(placeholder):]
		case t.destinationIndex == -1:
			t.destinationIndex = i
			t.DestinationSuffix = part[len(placeholder):]
		default:
			return nil, errors.CommandTemplateError("too many placeholder parameters in command").
				WithContext("command", command).
				Build()
		}
	}
	if t.destinationIndex == -1 {
		return nil, errors.CommandTemplateError("too few placeholder parameters in command").
			WithContext("command", command).
			Build()
	}
	return t, nil
}

// String returns the command as configured.
func (t *CommandTemplate) String() string {
	return t.raw
}

// Argv substitutes both slots.
func (t *CommandTemplate) Argv(source, destination string) []string {
	argv := append([]string(nil), t.argv...)
	argv[t.sourceIndex] = source
	argv[t.destinationIndex] = destination
	return argv
}

// DesiredFilename swaps the source suffix for the destination suffix. Names
// that do not end in the source suffix are returned unchanged.
func (t *CommandTemplate) DesiredFilename(source string) string {
	if !strings.HasSuffix(source, t.SourceSuffix) {
		return source
	}
	return strings.TrimSuffix(source, t.SourceSuffix) + t.DestinationSuffix
}

// Exec runs an external tool on the source file.
type Exec struct {
	Base
	command *CommandTemplate
}

// NewExec parses command and binds it to doc.
func NewExec(doc *document.Context, command string) (*Exec, error) {
	t, err := ParseCommand(command)
	if err != nil {
		return nil, err
	}
	return NewExecFromTemplate(doc, t), nil
}

// NewExecFromTemplate binds an already parsed command to doc.
func NewExecFromTemplate(doc *document.Context, t *CommandTemplate) *Exec {
	return &Exec{Base: NewBase(doc), command: t}
}

// Command returns the parsed command.
func (p *Exec) Command() *CommandTemplate {
	return p.command
}

// DesiredFilename applies the command's suffix rewrite to the source path.
func (p *Exec) DesiredFilename() (string, error) {
	doc, err := p.Document()
	if err != nil {
		return "", err
	}
	return p.command.DesiredFilename(doc.SourceFilename), nil
}

// Run invokes the tool synchronously with absolute paths.
func (p *Exec) Run(ctx context.Context) error {
	doc, err := p.Document()
	if err != nil {
		return err
	}
	if err := doc.MakeDestinationFolder(); err != nil {
		return err
	}
	dest, err := doc.FullDestinationFilename()
	if err != nil {
		return err
	}

	argv := p.command.Argv(doc.FullSourceFilename(), dest)
	if _, err := process.Run(ctx, process.Command{Argv: argv, Dir: doc.Environment().ProjectFolder}); err != nil {
		return errors.WrapError(err, errors.CategoryProcess, "external program failed").
			WithSource(doc.SourceFilename).
			WithContext("command", p.command.String()).
			Build()
	}
	return nil
}
