package fragment

import (
	"fmt"
	"strings"
)

// Syntax renders the constructs whose spelling differs between regex
// dialects.
type Syntax interface {
	Name() string
	NamedGroup(name, body string) string
	Backreference(name string) string
}

type netSyntax struct{}

func (netSyntax) Name() string { return "net" }

func (netSyntax) NamedGroup(name, body string) string {
	return "(?<" + name + ">" + body + ")"
}

func (netSyntax) Backreference(name string) string {
	return `\k<` + name + `>`
}

type pythonSyntax struct{}

func (pythonSyntax) Name() string { return "python" }

func (pythonSyntax) NamedGroup(name, body string) string {
	return "(?P<" + name + ">" + body + ")"
}

func (pythonSyntax) Backreference(name string) string {
	return "(?P=" + name + ")"
}

var (
	// NET is the .NET dialect understood by regexp2, used for compilation.
	NET Syntax = netSyntax{}
	// Python renders patterns for Python's re/regex modules.
	Python Syntax = pythonSyntax{}
)

// SyntaxByName looks up a dialect by name.
func SyntaxByName(name string) (Syntax, error) {
	switch strings.ToLower(name) {
	case "net", "regexp2", "":
		return NET, nil
	case "python", "py":
		return Python, nil
	}
	return nil, fmt.Errorf("unknown syntax %q (want net or python)", name)
}
