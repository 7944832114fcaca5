package game

import (
	"strings"

	"livequiz-service/internal/domain"
)

// NormalizeAnswer is the comparison form of an option label.
func NormalizeAnswer(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// CorrectOption returns the option flagged correct.
func CorrectOption(q domain.Question) (domain.Option, bool) {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt, true
		}
	}
	return domain.Option{}, false
}

// IsCorrect compares a free-text selection against the question's correct option.
func IsCorrect(q domain.Question, selected string) bool {
	want, ok := CorrectOption(q)
	if !ok {
		return false
	}
	got := NormalizeAnswer(selected)
	return got != "" && got == NormalizeAnswer(want.Text)
}

// ValidateQuestion enforces the shape scoring relies on: at least two distinct labels and
// exactly one correct option.
func ValidateQuestion(text string, options []domain.Option) error {
	if strings.TrimSpace(text) == "" {
		return domain.Invalid("question text is required")
	}
	if len(options) < 2 {
		return domain.Invalid("a question needs at least 2 options")
	}
	seen := make(map[string]struct{}, len(options))
	correct := 0
	for i, opt := range options {
		label := NormalizeAnswer(opt.Text)
		if label == "" {
			return domain.Invalid("option %d has no text", i+1)
		}
		if _, dup := seen[label]; dup {
			return domain.Invalid("option %q is listed twice", opt.Text)
		}
		seen[label] = struct{}{}
		if opt.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return domain.Invalid("exactly one option must be marked correct, got %d", correct)
	}
	return nil
}

// Sanitize strips correctness flags so the question can be sent to players.
func Sanitize(q domain.Question) domain.PublicQuestion {
	opts := make([]domain.PublicOption, 0, len(q.Options))
	for _, opt := range q.Options {
		opts = append(opts, domain.PublicOption{Text: opt.Text})
	}
	return domain.PublicQuestion{ID: q.ID, Text: q.Text, Options: opts}
}
