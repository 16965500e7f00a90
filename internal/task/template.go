package task

import "strings"

// ResolveCmd expands ${NAME} and ${NAME:-default} placeholders in cmd
// against env. ${NAME} is substituted if present in env, otherwise left
// literal; ${NAME:-default} is substituted if present,
// otherwise replaced with default.
//
// Positional argument tokens (tokens supplied by the caller that do not
// contain "=") are appended separately by the scheduler/executor after
// this resolution step.
func ResolveCmd(cmd string, env VarEnv) string {
	var b strings.Builder
	b.Grow(len(cmd))

	i := 0
	for i < len(cmd) {
		start := strings.Index(cmd[i:], "${")
		if start < 0 {
			b.WriteString(cmd[i:])
			break
		}
		start += i
		b.WriteString(cmd[i:start])

		end := strings.IndexByte(cmd[start+2:], '}')
		if end < 0 {
			// Unterminated placeholder: emit literally and stop scanning.
			b.WriteString(cmd[start:])
			break
		}
		end += start + 2

		body := cmd[start+2 : end]
		b.WriteString(resolvePlaceholder(body, env))
		i = end + 1
	}

	return b.String()
}

// resolvePlaceholder resolves the inside of a single ${...} expression.
func resolvePlaceholder(body string, env VarEnv) string {
	name, def, hasDefault := strings.Cut(body, ":-")
	if v, ok := env.Lookup(name); ok {
		return v
	}
	if hasDefault {
		return def
	}
	// ${NAME} with NAME absent: left literal
	return "${" + body + "}"
}

// SplitPositional separates caller-supplied tokens into positional
// arguments (no "=") and per-run variable overrides (KEY=VALUE).
func SplitPositional(tokens []string) (positional []string, overrides map[string]string) {
	overrides = make(map[string]string)
	for _, tok := range tokens {
		if k, v, ok := strings.Cut(tok, "="); ok {
			overrides[k] = v
			continue
		}
		positional = append(positional, tok)
	}
	return positional, overrides
}

// AppendPositional space-joins positional arguments onto a resolved
// command string.
func AppendPositional(resolvedCmd string, positional []string) string {
	if len(positional) == 0 {
		return resolvedCmd
	}
	return resolvedCmd + " " + strings.Join(positional, " ")
}
