// Package wordgen generates candidate vocabulary from a syllable pattern
// and letter categories, the usual conlang workflow of sketching a
// phonotactic template and sampling words from it.
package wordgen

import (
	"fmt"
	"math/rand"
	"strings"
)

// Limits on a generation request.
const (
	MaxAmount     = 1000
	MaxSyllables  = 50
	MaxCategories = 20
)

// wordsPerRow is the column count of the formatted word list.
const wordsPerRow = 5

// dedupeAttempts bounds how often a duplicate word is regenerated before
// giving up on that slot.
const dedupeAttempts = 10

// Request describes one generation run. Pattern is a comma-separated list
// of syllable templates, e.g. "CVC,CV(V)(C(!))". Category letters inside a
// template expand to a random letter from that category, parenthesized
// groups are included with 50% probability, and "!" doubles the last
// generated letter.
type Request struct {
	Amount       int
	MinSyllables int
	MaxSyllables int
	Pattern      string
	Categories   map[rune][]string
}

// ParseCategory parses a category definition of the form "V:a,e,i,o,u".
func ParseCategory(definition string) (rune, []string, error) {
	name, letters, ok := strings.Cut(definition, ":")
	if !ok {
		return 0, nil, fmt.Errorf("category %q is not formatted correctly, example: V:a,e,i,o,u", definition)
	}
	runes := []rune(name)
	if len(runes) != 1 {
		return 0, nil, fmt.Errorf("category names must be a single character, got %q", name)
	}
	return runes[0], strings.Split(letters, ","), nil
}

// Validate checks the request bounds and that every pattern character is
// either syntax or a defined category.
func (r Request) Validate() error {
	if r.Amount < 1 || r.Amount > MaxAmount {
		return fmt.Errorf("amount must be between 1 and %d", MaxAmount)
	}
	if r.MinSyllables < 1 || r.MaxSyllables > MaxSyllables || r.MinSyllables > r.MaxSyllables {
		return fmt.Errorf("syllable counts must be between 1 and %d with min <= max", MaxSyllables)
	}
	if len(r.Categories) > MaxCategories {
		return fmt.Errorf("at most %d categories are supported", MaxCategories)
	}
	for _, char := range r.Pattern {
		switch char {
		case ',', '(', ')', '!':
			continue
		}
		if _, ok := r.Categories[char]; !ok {
			return fmt.Errorf("category not defined: %c", char)
		}
	}
	return nil
}

// Generate samples words from the request and formats them in padded
// columns. Duplicate words are retried a bounded number of times, so the
// output can hold fewer than Amount words when the pattern space is small.
func Generate(rng *rand.Rand, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	templates := strings.Split(req.Pattern, ",")
	words := make([]string, 0, req.Amount)
	for i := 0; i < req.Amount; i++ {
		for attempt := 0; attempt < dedupeAttempts; attempt++ {
			word := generateWord(rng, req, templates)
			if !contains(words, word) {
				words = append(words, word)
				break
			}
		}
	}
	return formatColumns(words), nil
}

func generateWord(rng *rand.Rand, req Request, templates []string) string {
	var word strings.Builder
	count := req.MinSyllables + rng.Intn(req.MaxSyllables-req.MinSyllables+1)

	for i := 0; i < count; i++ {
		template := templates[rng.Intn(len(templates))]
		skipping := 0
		for _, char := range template {
			switch {
			case char == '(':
				if skipping > 0 || rng.Intn(2) == 0 {
					skipping++
				}
			case char == ')':
				if skipping > 0 {
					skipping--
				}
			case skipping > 0:
			case char == '!':
				if last := lastRune(word.String()); last != 0 {
					word.WriteRune(last)
				}
			default:
				letters := req.Categories[char]
				word.WriteString(letters[rng.Intn(len(letters))])
			}
		}
	}
	return word.String()
}

func formatColumns(words []string) string {
	longest := 0
	for _, word := range words {
		if len(word) > longest {
			longest = len(word)
		}
	}
	width := longest + 2

	var out strings.Builder
	for idx, word := range words {
		out.WriteString(word)
		if idx%wordsPerRow == wordsPerRow-1 {
			out.WriteString("\n")
		} else {
			out.WriteString(strings.Repeat(" ", width-len(word)))
		}
	}
	return out.String()
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}

func contains(words []string, word string) bool {
	for _, w := range words {
		if w == word {
			return true
		}
	}
	return false
}
