package name

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hpungsan/cradle/internal/errors"
)

// MaxTextLength is the longest accepted name, in runes.
const MaxTextLength = 64

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// apostropheReplacer folds typographic apostrophes to ASCII.
var apostropheReplacer = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

var lower = cases.Lower(language.Und)

// Canonicalize returns the stored form of a name:
// 1. Fold typographic apostrophes to '
// 2. Trim and collapse internal whitespace to single spaces
// 3. Lowercase, then uppercase the first letter of every word
//
// A word starts at the beginning of the text and after a space, an apostrophe,
// or any rune in allowedSpecial ("o'brien" -> "O'Brien").
// Two inputs that canonicalize to the same text are the same name.
func Canonicalize(text, allowedSpecial string) string {
	s := apostropheReplacer.Replace(text)
	s = strings.TrimSpace(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	s = lower.String(s)

	var b strings.Builder
	b.Grow(len(s))
	wordStart := true
	for _, r := range s {
		if wordStart && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			wordStart = false
			continue
		}
		b.WriteRune(r)
		wordStart = isWordBreak(r, allowedSpecial)
	}
	return b.String()
}

func isWordBreak(r rune, allowedSpecial string) bool {
	return r == ' ' || r == '\'' || strings.ContainsRune(allowedSpecial, r)
}

// ValidateText checks canonical name text. Letters, spaces and apostrophes are
// always allowed; allowedSpecial adds further characters.
func ValidateText(text, allowedSpecial string) error {
	return validation.Validate(text,
		validation.Required,
		validation.RuneLength(1, MaxTextLength),
		validation.By(charsetRule(allowedSpecial)),
	)
}

func charsetRule(allowedSpecial string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		for _, r := range s {
			if unicode.IsLetter(r) || unicode.Is(unicode.Mn, r) || isWordBreak(r, allowedSpecial) {
				continue
			}
			if allowedSpecial == "" {
				return fmt.Errorf("must contain only letters, spaces and apostrophes (found %q)", r)
			}
			return fmt.Errorf("must contain only letters, spaces, apostrophes and %q (found %q)", allowedSpecial, r)
		}
		if strings.IndexFunc(s, unicode.IsLetter) < 0 && s != "" {
			return fmt.Errorf("must contain at least one letter")
		}
		return nil
	}
}

// Fields describes a name to be created.
type Fields struct {
	Text     string
	Category Category
	Rating   int
}

// Validate canonicalizes f.Text in place and checks every field.
// Returns a VALIDATION_FAILED error naming each rejected field.
func (f *Fields) Validate(minRating int, allowedSpecial string) error {
	f.Text = Canonicalize(f.Text, allowedSpecial)

	errs := validation.Errors{
		"text":     ValidateText(f.Text, allowedSpecial),
		"category": validation.Validate(string(f.Category), validation.Required, validation.In(string(Female), string(Male))),
		"rating":   validation.Validate(f.Rating, validation.Min(minRating)),
	}.Filter()
	if errs == nil {
		return nil
	}

	return ValidationError(errs)
}

// ValidationError converts ozzo validation errors to a VALIDATION_FAILED error.
func ValidationError(err error) error {
	vErrs, ok := err.(validation.Errors)
	if !ok {
		return errors.NewValidationFailed(map[string]string{"value": err.Error()})
	}
	fields := make(map[string]string, len(vErrs))
	for field, fErr := range vErrs {
		fields[field] = fErr.Error()
	}
	return errors.NewValidationFailed(fields)
}
