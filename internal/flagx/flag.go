// Package flagx picks individual flags out of the process command line
// before the main flag set is built.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns the arguments that belong to the named flags, in
// order. Names are given without dashes; "-name" and "--name" are both
// recognised, as are "-name value" and "-name=value". Switches never
// consume the following argument. Parsing stops at "--".
func FilterArgs(args []string, valued []string, switches ...string) []string {
	takesValue := make(map[string]bool, len(valued)+len(switches))
	for _, n := range valued {
		takesValue[n] = true
	}
	for _, n := range switches {
		takesValue[n] = false
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			break
		}
		name, inline, ok := flagName(args[i])
		if !ok {
			continue
		}
		needsValue, known := takesValue[name]
		if !known {
			continue
		}

		filtered = append(filtered, args[i])
		if needsValue && !inline && i+1 < len(args) && !isFlag(args[i+1]) {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

func isFlag(s string) bool {
	return len(s) > 1 && s[0] == '-'
}

// flagName splits "-name", "--name" or "-name=value" into the bare name and
// whether the value is inline.
func flagName(arg string) (name string, inline, ok bool) {
	if !isFlag(arg) {
		return "", false, false
	}
	trimmed := strings.TrimPrefix(arg[1:], "-")
	name, _, inline = strings.Cut(trimmed, "=")
	return name, inline, name != ""
}

// lookup extracts the value of one string flag given in short or long
// form. The last occurrence wins; an absent flag yields "".
func lookup(args []string, short, long string) string {
	var value string

	fs := flag.NewFlagSet(long, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&value, long, "", "")
	fs.StringVar(&value, short, "", "")
	_ = fs.Parse(FilterArgs(args, []string{short, long}))

	return value
}

// ConfigPath returns the JSON config file named by -c or -config.
func ConfigPath(args []string) string {
	return lookup(args, "c", "config")
}

// EnvFilePath returns the dotenv file named by -e or -env-file.
func EnvFilePath(args []string) string {
	return lookup(args, "e", "env-file")
}
