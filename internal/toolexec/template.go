package toolexec

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Placeholders recognized in argument templates.
const (
	Mode         = "{mode}"
	Threads      = "{threads}"
	DatabasePath = "{database_path}"
	QueryPath    = "{query_path}"
	OutputPath   = "{output_path}"
	FormatSpec   = "{format_spec}"
	TmpDir       = "{tmp_dir}"
	MaxAccept    = "{max_accept}"
)

var (
	placeholderPattern = regexp.MustCompile(`\{[a-z_]+\}`)
	knownPlaceholders  = map[string]struct{}{
		Mode: {}, Threads: {}, DatabasePath: {}, QueryPath: {},
		OutputPath: {}, FormatSpec: {}, TmpDir: {}, MaxAccept: {},
	}
)

// Values supplies the per-category substitutions for a Template.
type Values struct {
	Mode         string
	Threads      int
	DatabasePath string
	QueryPath    string
	OutputPath   string
	FormatSpec   string
	TmpDir       string
	MaxAccept    int
}

// Template is a validated argument list with placeholders.
type Template struct {
	args []string
}

// ParseTemplate validates args and returns a Template. Unknown placeholders and
// empty arguments are rejected.
func ParseTemplate(args []string) (Template, error) {
	if len(args) == 0 {
		return Template{}, errors.New("template must contain at least one argument")
	}
	for i, arg := range args {
		if strings.TrimSpace(arg) == "" {
			return Template{}, fmt.Errorf("argument %d is empty", i)
		}
		for _, token := range placeholderPattern.FindAllString(arg, -1) {
			if _, ok := knownPlaceholders[token]; !ok {
				return Template{}, fmt.Errorf("argument %d: unknown placeholder %s", i, token)
			}
		}
	}
	return Template{args: append([]string(nil), args...)}, nil
}

// MustParseTemplate is ParseTemplate for compile-time constant templates.
func MustParseTemplate(args ...string) Template {
	tmpl, err := ParseTemplate(args)
	if err != nil {
		panic(err)
	}
	return tmpl
}

// Expand substitutes values into the template. An argument consisting solely
// of {format_spec} expands to one argument per whitespace-separated field, so
// "6 qseqid sseqid pident" becomes four arguments.
func (t Template) Expand(v Values) []string {
	replacer := strings.NewReplacer(
		Mode, v.Mode,
		Threads, fmt.Sprint(v.Threads),
		DatabasePath, v.DatabasePath,
		QueryPath, v.QueryPath,
		OutputPath, v.OutputPath,
		FormatSpec, v.FormatSpec,
		TmpDir, v.TmpDir,
		MaxAccept, fmt.Sprint(v.MaxAccept),
	)
	out := make([]string, 0, len(t.args)+4)
	for _, arg := range t.args {
		if arg == FormatSpec {
			out = append(out, strings.Fields(v.FormatSpec)...)
			continue
		}
		out = append(out, replacer.Replace(arg))
	}
	return out
}

// Args returns a copy of the raw template arguments.
func (t Template) Args() []string {
	return append([]string(nil), t.args...)
}
