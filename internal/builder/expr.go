package builder

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"

	"github.com/expr-lang/expr"
)

// ConfigEnv is what {{...}} expressions in config strings can see
type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
}

func NewConfigEnv() ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
	}
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env ConfigEnv) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var sb strings.Builder
	lastIndex := 0

	for _, m := range matches {
		sb.WriteString(s[lastIndex:m[0]])

		expression := strings.TrimSpace(s[m[2]:m[3]])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		fmt.Fprintf(&sb, "%v", result)
		lastIndex = m[1]
	}

	sb.WriteString(s[lastIndex:])
	return sb.String(), nil
}

// processExpressions walks decoded config data and evaluates expressions in
// every string, in place
func processExpressions(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			processed, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processed
		}
		return v, nil
	case []any:
		for i, item := range v {
			processed, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processed
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}
