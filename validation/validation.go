// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/danielhkuo/pollbase/models"
)

// FieldErrors maps a field name to its messages
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

// Sanitize collapses whitespace runs to a single space and strips angle brackets.
// Output encoding is still the renderer's job.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inSpace := false
	for _, r := range s {
		if r == '<' || r == '>' {
			continue
		}
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}

// NormalizeOption returns the comparison key for option uniqueness
func NormalizeOption(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// ValidateCreate checks a poll creation payload
func ValidateCreate(req models.PollRequest) (models.PollData, FieldErrors) {
	data, errs := validate(req)
	// Identities are ignored on create
	for i := range data.Options {
		data.Options[i].ID = ""
	}
	return data, errs
}

// ValidateUpdate checks a poll update payload. Option IDs are kept in the
// result but the store replaces the whole option set regardless.
func ValidateUpdate(req models.PollRequest) (models.PollData, FieldErrors) {
	return validate(req)
}

func validate(req models.PollRequest) (models.PollData, FieldErrors) {
	errs := FieldErrors{}
	var data models.PollData

	// Title
	data.Title = Sanitize(req.Title)
	titleLen := utf8.RuneCountInString(data.Title)
	switch {
	case titleLen == 0:
		errs.Add("title", "Title is required")
	case titleLen < models.TitleMinLen:
		errs.Add("title", fmt.Sprintf("Title must be at least %d characters", models.TitleMinLen))
	case titleLen > models.TitleMaxLen:
		errs.Add("title", fmt.Sprintf("Title must be at most %d characters", models.TitleMaxLen))
	}

	// Description (empty means not provided)
	if desc := Sanitize(req.Description); desc != "" {
		if utf8.RuneCountInString(desc) > models.DescriptionMaxLen {
			errs.Add("description", fmt.Sprintf("Description must be at most %d characters", models.DescriptionMaxLen))
		}
		data.Description = &desc
	}

	// Options: drop blanks before counting
	options := make([]models.OptionInput, 0, len(req.Options))
	for _, opt := range req.Options {
		text := Sanitize(opt.Text)
		if text == "" {
			continue
		}
		options = append(options, models.OptionInput{ID: strings.TrimSpace(opt.ID), Text: text})
	}

	switch {
	case len(options) < models.MinOptions:
		errs.Add("options", fmt.Sprintf("At least %d options are required", models.MinOptions))
	case len(options) > models.MaxOptions:
		errs.Add("options", fmt.Sprintf("At most %d options are allowed", models.MaxOptions))
	}

	seen := make(map[string]bool, len(options))
	duplicate := false
	for i, opt := range options {
		if utf8.RuneCountInString(opt.Text) > models.OptionMaxLen {
			errs.Add("options", fmt.Sprintf("Option %d must be at most %d characters", i+1, models.OptionMaxLen))
		}
		key := NormalizeOption(opt.Text)
		if seen[key] {
			duplicate = true
		}
		seen[key] = true
	}
	if duplicate {
		errs.Add("options", "Options must be unique")
	}

	data.Options = options
	return data, errs
}
