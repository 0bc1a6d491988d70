// Package flagx extracts a handful of bootstrap flags (config file, env file,
// dev mode) from the command line without interfering with flag sets owned
// by other packages.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// FilterArgs returns the subset of args made of the allowed flags and their
// values. Both "-c conf.json" and "--config=conf.json" forms are supported.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			// the next token is the value unless it looks like a flag
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// LookupString returns the value of the last occurrence of any of the given
// flag names (without dashes) in args, or "" when none is present.
func LookupString(args []string, names ...string) string {
	var value string

	allowed := make([]string, 0, len(names)*2)
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, n := range names {
		allowed = append(allowed, "-"+n, "--"+n)
		fs.StringVar(&value, n, "", n)
	}
	_ = fs.Parse(FilterArgs(args, allowed))

	return value
}

// LookupBool reports whether the boolean flag name is set in args.
func LookupBool(args []string, name string) bool {
	var value bool

	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&value, name, false, name)

	// bool flags never take a separate value
	filtered := make([]string, 0, 1)
	for _, a := range args {
		n := strings.SplitN(strings.TrimLeft(a, "-"), "=", 2)[0]
		if strings.HasPrefix(a, "-") && n == name {
			filtered = append(filtered, a)
		}
	}
	_ = fs.Parse(filtered)

	return value
}

// JsonConfigFlags returns the JSON config file path given with -c or -config.
func JsonConfigFlags() string {
	return LookupString(os.Args[1:], "c", "config")
}

// EnvFileFlags returns the dotenv file path given with -env-file.
func EnvFileFlags() string {
	return LookupString(os.Args[1:], "env-file")
}
