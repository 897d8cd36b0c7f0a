// Package menu defines the options offered to a user in one selection session
// and the decorative design of the chooser that presents them.
package menu

import (
	"fmt"
)

// Source produces the preview of an Option. It is a closed union: the only
// implementations are Text and Command.
type Source interface {
	isSource()
}

// Text is a static, inline preview.
type Text string

// Command is an argv vector whose (cached) result is the preview.
type Command []string

func (Text) isSource()    {}
func (Command) isSource() {}

// Option is an item offered to the user.
//
// Name is the wire key for both the chooser selection and the preview lookup,
// so it must be unique within a session. When two options share a name the
// later one shadows the earlier one (see Index).
type Option struct {
	Name    string
	Tag     string // opaque caller payload
	Preview Source
}

// String implements fmt.Stringer.
func (o Option) String() string {
	return fmt.Sprintf("Option(%q)", o.Name)
}

// Index builds the name -> Option mapping for a session.
// Duplicate names shadow earlier options: the last definition wins.
func Index(options []Option) map[string]Option {
	idx := make(map[string]Option, len(options))
	for _, o := range options {
		idx[o.Name] = o
	}
	return idx
}

// Names returns the option names in presentation order. A duplicated name
// keeps the position of its first occurrence and appears only once.
func Names(options []Option) []string {
	seen := make(map[string]bool, len(options))
	names := make([]string, 0, len(options))
	for _, o := range options {
		if seen[o.Name] {
			continue
		}
		seen[o.Name] = true
		names = append(names, o.Name)
	}
	return names
}

// Duplicates returns every name defined more than once, in order of the
// first repeated definition.
func Duplicates(options []Option) []string {
	count := make(map[string]int, len(options))
	var dups []string
	for _, o := range options {
		count[o.Name]++
		if count[o.Name] == 2 {
			dups = append(dups, o.Name)
		}
	}
	return dups
}

// Design holds the decorative parameters of the chooser.
type Design struct {
	BorderLabel string `yaml:"border_label"`
	Header      string `yaml:"header"`
	Prompt      string `yaml:"prompt"`
}

// Decorate returns the design as shown to the user. In debug mode the
// border label is wrapped in [DEBUG] markers.
func (d Design) Decorate(debug bool) Design {
	if debug {
		d.BorderLabel = "[DEBUG] " + d.BorderLabel + " [DEBUG]"
	}
	return d
}
