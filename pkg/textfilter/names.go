// Package textfilter normalises user-entered character names and tags
// before they reach a roster.
package textfilter

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/easton-heights/pkg/actor"
)

// MaxNameLength bounds a display name in runes.
const MaxNameLength = 32

var (
	ErrEmptyName     = errors.New("name cannot be empty")
	ErrNameTooLong   = errors.New("name is too long")
	ErrNameProfanity = errors.New("name contains blocked words")
)

var blockedWords = []string{
	"fuck", "shit", "bitch", "bastard", "cock", "dick", "pussy", "whore", "slut",
	"fag", "retard", "nigger", "nigga", "spic", "chink", "kike", "motherfucker",
	"asshole", "dumbass", "jackass", "dipshit", "shithead", "dickhead", "douchebag",
}

// NameFilter cleans and checks display names. It is safe for concurrent
// use; casers are stateful, so each call builds its own.
type NameFilter struct {
	blocked []*regexp.Regexp
}

// NewNameFilter compiles the blocked word patterns.
func NewNameFilter() *NameFilter {
	nf := &NameFilter{
		blocked: make([]*regexp.Regexp, 0, len(blockedWords)),
	}
	for _, word := range blockedWords {
		nf.blocked = append(nf.blocked, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	return nf
}

// CleanName collapses whitespace and capitalises each word. Existing
// capitals are kept, so "mcIntyre" becomes "McIntyre".
func (nf *NameFilter) CleanName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", ErrEmptyName
	}
	if len([]rune(name)) > MaxNameLength {
		return "", ErrNameTooLong
	}
	if nf.ContainsBlocked(name) {
		return "", ErrNameProfanity
	}
	return cases.Title(language.Und, cases.NoLower).String(name), nil
}

// ContainsBlocked reports whether text contains a blocked word.
func (nf *NameFilter) ContainsBlocked(text string) bool {
	for _, re := range nf.blocked {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// CanonicalTrait maps a trait to its vocabulary spelling, ignoring case.
func (nf *NameFilter) CanonicalTrait(trait string) (string, bool) {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(trait))
	if want == "" {
		return "", false
	}
	for _, t := range actor.Traits {
		if fold.String(t) == want {
			return t, true
		}
	}
	return "", false
}

// CleanCharacter normalises a character's name and traits in place.
// Unknown traits are returned as an error listing them.
func (nf *NameFilter) CleanCharacter(c *actor.Character) error {
	name, err := nf.CleanName(c.Name)
	if err != nil {
		return err
	}
	c.Name = name

	var unknown []string
	traits := actor.NewTags()
	for _, t := range c.Traits.Sorted() {
		canon, ok := nf.CanonicalTrait(t)
		if !ok {
			unknown = append(unknown, t)
			continue
		}
		traits.Add(canon)
	}
	if len(unknown) > 0 {
		return &UnknownTraitsError{Traits: unknown}
	}
	c.Traits = traits
	return nil
}

// UnknownTraitsError lists traits outside the vocabulary.
type UnknownTraitsError struct {
	Traits []string
}

func (e *UnknownTraitsError) Error() string {
	return "unknown traits: " + strings.Join(e.Traits, ", ")
}
