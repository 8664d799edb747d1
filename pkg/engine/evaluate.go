package engine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/urbanquest/quest-progression/pkg/domain"
)

// Evaluate reports whether resp satisfies challenge. It does not check arrival.
func Evaluate(challenge domain.Challenge, resp domain.ChallengeResponse) bool {
	switch c := challenge.(type) {
	case domain.TextChallenge:
		return answersMatch(resp.Text, c.Answer)

	case domain.MultipleChoiceChallenge:
		if resp.ChoiceIndex != nil {
			return *resp.ChoiceIndex == c.CorrectIndex
		}
		return answersMatch(resp.Text, c.Answer)

	case domain.PhotoChallenge:
		return true

	case domain.LocationOnlyChallenge:
		return true

	case domain.PatternChallenge:
		return c.Match(strings.TrimSpace(resp.Text))

	case domain.AudioChallenge:
		return strings.TrimSpace(resp.RecordingRef) != ""

	case domain.QRCodeChallenge:
		return answersMatch(resp.Text, c.Expected)

	default:
		return false
	}
}

// NormalizeAnswer trims, collapses inner whitespace, applies NFC and case-folds s.
func NormalizeAnswer(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = norm.NFC.String(s)
	// Casers keep state and are not safe for concurrent use.
	return cases.Fold().String(s)
}

func answersMatch(given, expected string) bool {
	g := NormalizeAnswer(given)
	return g != "" && g == NormalizeAnswer(expected)
}
