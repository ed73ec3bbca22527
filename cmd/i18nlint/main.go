// Command i18nlint reports translation keys missing from any locale and exits non-zero
// when a locale is incomplete.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"hrportfolio.dev/web/internal/i18n"
)

func main() {
	dir := flag.String("dir", "", "locales directory (defaults to the embedded dictionaries)")
	flag.Parse()
	os.Exit(run(*dir, os.Stdout, os.Stderr))
}

func run(dir string, stdout, stderr io.Writer) int {
	var (
		dict *i18n.Dictionary
		err  error
	)
	if dir == "" {
		dict, err = i18n.LoadEmbedded()
	} else {
		dict, err = i18n.Load(os.DirFS(dir))
	}
	if err != nil {
		fmt.Fprintf(stderr, "i18nlint: %v\n", err)
		return 2
	}

	missing := dict.MissingKeys()
	status := 0
	for _, locale := range i18n.SupportedLocales() {
		keys := missing[locale]
		if len(keys) == 0 {
			fmt.Fprintf(stdout, "%s: ok (%d keys)\n", locale, len(dict.Keys(locale)))
			continue
		}
		status = 1
		fmt.Fprintf(stdout, "%s: %d missing\n", locale, len(keys))
		for _, k := range keys {
			fmt.Fprintf(stdout, "  %s\n", k)
		}
	}
	return status
}
