package menu

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
)

// File is the on-disk menu definition.
type File struct {
	Design  Design       `yaml:"design"`
	Options []OptionSpec `yaml:"options"`
}

// OptionSpec is one option as written in a menu file.
// At most one of Description, PreviewCmd and PreviewArgv may be set.
type OptionSpec struct {
	Name        string   `yaml:"name"`
	Tag         string   `yaml:"tag"`
	Description string   `yaml:"description"`
	PreviewCmd  string   `yaml:"preview_cmd"`
	PreviewArgv []string `yaml:"preview_argv"`
}

// ErrEmptyName is returned for an option without a name.
var ErrEmptyName = errors.New("option name must not be empty")

// ErrInvalidName is returned for an option name containing a control
// character. Choosers exchange names as lines, so a name must fit on one.
var ErrInvalidName = errors.New("option name must not contain control characters")

// LoadFile reads a menu definition from path. "-" reads from stdin.
func LoadFile(path string) (*File, []Option, error) {
	if path == "-" {
		return Parse(os.Stdin)
	}
	f, err := os.Open(path) //nolint:gosec // G304: menu path is supplied by the user
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open menu file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a YAML menu definition and converts it to options.
func Parse(r io.Reader) (*File, []Option, error) {
	var mf File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&mf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("menu file is empty")
		}
		return nil, nil, fmt.Errorf("failed to parse menu file: %w", err)
	}

	options := make([]Option, 0, len(mf.Options))
	for i, spec := range mf.Options {
		opt, err := spec.Option()
		if err != nil {
			return nil, nil, fmt.Errorf("options[%d]: %w", i, err)
		}
		options = append(options, opt)
	}
	return &mf, options, nil
}

// Option converts s into an Option.
func (s OptionSpec) Option() (Option, error) {
	if s.Name == "" {
		return Option{}, ErrEmptyName
	}
	if strings.IndexFunc(s.Name, unicode.IsControl) >= 0 {
		return Option{}, fmt.Errorf("%w: %q", ErrInvalidName, s.Name)
	}

	set := 0
	for _, present := range []bool{s.Description != "", s.PreviewCmd != "", len(s.PreviewArgv) > 0} {
		if present {
			set++
		}
	}
	if set > 1 {
		return Option{}, fmt.Errorf("option %q: description, preview_cmd and preview_argv are mutually exclusive", s.Name)
	}

	tag := s.Tag
	if tag == "" {
		tag = s.Name
	}

	var src Source = Text(s.Description)
	switch {
	case s.PreviewCmd != "":
		argv, err := shlex.Split(s.PreviewCmd)
		if err != nil {
			return Option{}, fmt.Errorf("option %q: invalid preview_cmd: %w", s.Name, err)
		}
		if len(argv) == 0 {
			return Option{}, fmt.Errorf("option %q: preview_cmd is blank", s.Name)
		}
		src = Command(argv)
	case len(s.PreviewArgv) > 0:
		src = Command(append([]string(nil), s.PreviewArgv...))
	}

	return Option{Name: s.Name, Tag: tag, Preview: src}, nil
}
