package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ChallengeKind is the category of verification required at a stop.
type ChallengeKind string

const (
	// ChallengeKindText expects a typed answer matched case-insensitively.
	ChallengeKindText ChallengeKind = "text"

	// ChallengeKindMultipleChoice (trivia) expects one of a fixed set of options.
	ChallengeKindMultipleChoice ChallengeKind = "multiple_choice"

	// ChallengeKindPhoto is satisfied by the submission itself once arrived.
	ChallengeKindPhoto ChallengeKind = "photo"

	// ChallengeKindLocationOnly is satisfied by arriving; no submission is needed.
	ChallengeKindLocationOnly ChallengeKind = "location_only"

	// ChallengeKindPattern expects input matching a stop-defined regular expression.
	ChallengeKindPattern ChallengeKind = "regex"

	// ChallengeKindAudio is satisfied once a recording is supplied. Content is not validated.
	ChallengeKindAudio ChallengeKind = "audio"

	// ChallengeKindQRCode expects the decoded content of a QR code placed at the stop.
	ChallengeKindQRCode ChallengeKind = "qr_code"
)

// IsValid returns true if the kind is a known challenge kind.
func (k ChallengeKind) IsValid() bool {
	switch k {
	case ChallengeKindText, ChallengeKindMultipleChoice, ChallengeKindPhoto,
		ChallengeKindLocationOnly, ChallengeKindPattern, ChallengeKindAudio, ChallengeKindQRCode:
		return true
	default:
		return false
	}
}

// RequiresAnswer reports whether the kind carries an expected answer or pattern.
func (k ChallengeKind) RequiresAnswer() bool {
	switch k {
	case ChallengeKindText, ChallengeKindMultipleChoice, ChallengeKindPattern, ChallengeKindQRCode:
		return true
	default:
		return false
	}
}

// ChallengeSpec is the catalog form of a challenge. Build turns it into a Challenge.
type ChallengeSpec struct {
	Type           ChallengeKind `json:"type" yaml:"type"`
	Prompt         string        `json:"prompt" yaml:"prompt"`
	Answer         string        `json:"answer,omitempty" yaml:"answer,omitempty"`
	Options        []string      `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectIndex   *int          `json:"correct_index,omitempty" yaml:"correct_index,omitempty"`
	Pattern        string        `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	SuccessMessage string        `json:"success_message,omitempty" yaml:"success_message,omitempty"`
	FailureMessage string        `json:"failure_message,omitempty" yaml:"failure_message,omitempty"`
}

// Challenge is the closed set of challenge variants. Only types in this
// package implement it.
type Challenge interface {
	Kind() ChallengeKind
	Prompt() string
	SuccessMessage() string
	FailureMessage() string
	sealed()
}

type challengeBase struct {
	prompt  string
	success string
	failure string
}

func (b challengeBase) Prompt() string         { return b.prompt }
func (b challengeBase) SuccessMessage() string { return b.success }
func (b challengeBase) FailureMessage() string { return b.failure }
func (b challengeBase) sealed()                {}

// TextChallenge expects a free-text answer.
type TextChallenge struct {
	challengeBase
	Answer string
}

func (TextChallenge) Kind() ChallengeKind { return ChallengeKindText }

// MultipleChoiceChallenge expects the option equal to Answer, by text or by index.
type MultipleChoiceChallenge struct {
	challengeBase
	Options      []string
	CorrectIndex int
	Answer       string
}

func (MultipleChoiceChallenge) Kind() ChallengeKind { return ChallengeKindMultipleChoice }

// PhotoChallenge is proven by the submission itself.
type PhotoChallenge struct {
	challengeBase
}

func (PhotoChallenge) Kind() ChallengeKind { return ChallengeKindPhoto }

// LocationOnlyChallenge is proven by arrival.
type LocationOnlyChallenge struct {
	challengeBase
}

func (LocationOnlyChallenge) Kind() ChallengeKind { return ChallengeKindLocationOnly }

// PatternChallenge expects input matching a regular expression.
type PatternChallenge struct {
	challengeBase
	Pattern string
	re      *regexp.Regexp
}

func (PatternChallenge) Kind() ChallengeKind { return ChallengeKindPattern }

// Match reports whether input matches the compiled pattern.
func (c PatternChallenge) Match(input string) bool {
	if c.re == nil {
		return false
	}
	return c.re.MatchString(input)
}

// AudioChallenge is proven by supplying a recording.
type AudioChallenge struct {
	challengeBase
}

func (AudioChallenge) Kind() ChallengeKind { return ChallengeKindAudio }

// QRCodeChallenge expects the scanned QR payload to equal Expected.
type QRCodeChallenge struct {
	challengeBase
	Expected string
}

func (QRCodeChallenge) Kind() ChallengeKind { return ChallengeKindQRCode }

// Build checks the catalog definition and returns the matching Challenge variant.
func (s ChallengeSpec) Build() (Challenge, error) {
	base := challengeBase{prompt: s.Prompt, success: s.SuccessMessage, failure: s.FailureMessage}

	switch s.Type {
	case ChallengeKindText:
		if strings.TrimSpace(s.Answer) == "" {
			return nil, errors.New("text challenge requires an answer")
		}
		return TextChallenge{challengeBase: base, Answer: s.Answer}, nil

	case ChallengeKindMultipleChoice:
		return s.buildMultipleChoice(base)

	case ChallengeKindPhoto:
		return PhotoChallenge{challengeBase: base}, nil

	case ChallengeKindLocationOnly:
		return LocationOnlyChallenge{challengeBase: base}, nil

	case ChallengeKindPattern:
		if s.Pattern == "" {
			return nil, errors.New("regex challenge requires a pattern")
		}
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", s.Pattern, err)
		}
		return PatternChallenge{challengeBase: base, Pattern: s.Pattern, re: re}, nil

	case ChallengeKindAudio:
		return AudioChallenge{challengeBase: base}, nil

	case ChallengeKindQRCode:
		if strings.TrimSpace(s.Answer) == "" {
			return nil, errors.New("qr_code challenge requires the expected code content")
		}
		return QRCodeChallenge{challengeBase: base, Expected: s.Answer}, nil

	case "":
		return nil, errors.New("challenge type cannot be empty")

	default:
		return nil, fmt.Errorf("unknown challenge type '%s'", s.Type)
	}
}

func (s ChallengeSpec) buildMultipleChoice(base challengeBase) (Challenge, error) {
	if len(s.Options) < 2 {
		return nil, errors.New("multiple_choice challenge requires at least two options")
	}

	if s.CorrectIndex != nil {
		idx := *s.CorrectIndex
		if idx < 0 || idx >= len(s.Options) {
			return nil, fmt.Errorf("correct_index %d out of range for %d options", idx, len(s.Options))
		}
		return MultipleChoiceChallenge{
			challengeBase: base,
			Options:       s.Options,
			CorrectIndex:  idx,
			Answer:        s.Options[idx],
		}, nil
	}

	answer := strings.TrimSpace(s.Answer)
	if answer == "" {
		return nil, errors.New("multiple_choice challenge requires an answer or correct_index")
	}
	for i, opt := range s.Options {
		if strings.EqualFold(strings.TrimSpace(opt), answer) {
			return MultipleChoiceChallenge{
				challengeBase: base,
				Options:       s.Options,
				CorrectIndex:  i,
				Answer:        opt,
			}, nil
		}
	}
	return nil, fmt.Errorf("answer '%s' is not one of the options", s.Answer)
}

// ChallengeResponse is what the player submits for the current stop.
// Which fields matter depends on the challenge kind.
type ChallengeResponse struct {
	Text         string `json:"text,omitempty"`
	ChoiceIndex  *int   `json:"choice_index,omitempty"`
	PhotoRef     string `json:"photo_ref,omitempty"`
	RecordingRef string `json:"recording_ref,omitempty"`
}
