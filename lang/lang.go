// Package lang produces human readable English for messages sent to players.
package lang

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gertd/go-pluralize"
)

var pluralizeClient = func() *pluralize.Client {
	client := pluralize.NewClient()
	// Without this "axes" singularizes to "axis".
	client.AddIrregularRule("axe", "axes")
	return client
}()

func Singular(s string) string {
	return pluralizeClient.Singular(s)
}

func Plural(s string) string {
	return pluralizeClient.Plural(s)
}

func Capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

// Article returns the indefinite article for a word, keyed on
// pronunciation rather than spelling where the two disagree.
func Article(s string) string {
	word := strings.ToLower(strings.TrimSpace(s))
	if word == "" {
		return "a"
	}
	for _, silentH := range []string{"hour", "honest", "heir", "honor", "honour"} {
		if strings.HasPrefix(word, silentH) {
			return "an"
		}
	}
	for _, consonantSound := range []string{"uni", "use", "one", "once", "eu"} {
		if strings.HasPrefix(word, consonantSound) {
			return "a"
		}
	}
	if word[0] == '8' {
		return "an"
	}
	if strings.ContainsRune("aeiou", rune(word[0])) {
		return "an"
	}
	return "a"
}

func Indef(s string) string {
	return fmt.Sprintf("%s %s", Article(s), s)
}

// Card renders a cardinality, like "no swords", "an axe", or "4 swords".
func Card(count int, word string) string {
	switch count {
	case 0:
		return fmt.Sprintf("no %s", Plural(word))
	case 1:
		return Indef(word)
	case 2:
		return fmt.Sprintf("two %s", Plural(word))
	case 3:
		return fmt.Sprintf("three %s", Plural(word))
	default:
		return fmt.Sprintf("%d %s", count, Plural(word))
	}
}

const (
	DefaultPattern   = "%s"
	DefaultSeparator = ","
	DefaultOperator  = "and"
)

type Tense int

const (
	NoTense Tense = iota
	Present
	Past
)

type Enumerator struct {
	Pattern   string
	Separator string
	Operator  string
	Tense     Tense
}

func (e Enumerator) Do(elements ...string) string {
	pattern, separator, operator := DefaultPattern, DefaultSeparator, DefaultOperator
	if e.Pattern != "" {
		pattern = e.Pattern
	}
	if e.Separator != "" {
		separator = e.Separator
	}
	if e.Operator != "" {
		operator = e.Operator
	}
	res := &bytes.Buffer{}
	for idx, element := range elements {
		switch {
		case idx == len(elements)-1:
			fmt.Fprintf(res, pattern, element)
		case idx == len(elements)-2:
			if len(elements) == 2 {
				fmt.Fprintf(res, fmt.Sprintf("%s %%s ", pattern), element, operator)
			} else {
				fmt.Fprintf(res, fmt.Sprintf("%s%%s %%s ", pattern), element, separator, operator)
			}
		default:
			fmt.Fprintf(res, fmt.Sprintf("%s%%s ", pattern), element, separator)
		}
	}
	switch e.Tense {
	case Present:
		if len(elements) == 1 {
			fmt.Fprint(res, " is")
		} else {
			fmt.Fprint(res, " are")
		}
	case Past:
		if len(elements) == 1 {
			fmt.Fprint(res, " was")
		} else {
			fmt.Fprint(res, " were")
		}
	}
	return res.String()
}
