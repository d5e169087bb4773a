package launch_args

import (
	"strings"
)

// LaunchArgs holds an argv ready command. Values are never quoted here;
// CommandLine renders the quoted single string form.
type LaunchArgs struct {
	Executable       string   `json:"executable"`
	WorkingDirectory string   `json:"working_directory"`
	JVM              []string `json:"jvm"`
	MainClass        string   `json:"main_class"`
	Game             []string `json:"game"`
	Classpath        []string `json:"classpath"`
	ModulePath       []string `json:"module_path,omitempty"`
}

// Args is the argument vector after the executable.
func (a *LaunchArgs) Args() []string {
	out := make([]string, 0, len(a.JVM)+len(a.Game)+1)
	out = append(out, a.JVM...)
	out = append(out, a.MainClass)
	return append(out, a.Game...)
}

// CommandLine renders the executable and arguments as one string. Class and
// module path values are always quoted.
func (a *LaunchArgs) CommandLine() string {
	parts := []string{Quote(a.Executable)}
	args := a.Args()
	for i, s := range args {
		if i > 0 && isPathFlag(args[i-1]) {
			parts = append(parts, `"`+s+`"`)
			continue
		}
		parts = append(parts, Quote(s))
	}
	return strings.Join(parts, " ")
}

func isPathFlag(s string) bool {
	switch s {
	case "-cp", "-classpath", "--class-path", "-p", "--module-path":
		return true
	}
	return false
}

// Quote wraps s in double quotes when it holds a space or a character the
// shell would interpret.
func Quote(s string) string {
	if s == "" || strings.HasPrefix(s, `"`) {
		return s
	}
	if strings.ContainsAny(s, " \t[]()&|;") {
		return `"` + s + `"`
	}
	return s
}
