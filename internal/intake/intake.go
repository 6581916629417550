package intake

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingField is returned by Validate when a required field is empty.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidToken wraps any failure to decode an intake token.
	ErrInvalidToken = errors.New("invalid intake token")
)

// Intake holds the parameters a parent submits for one storybook.
// The JSON keys are the wire format of the intake token.
type Intake struct {
	ChildName      string `json:"child_name"`
	ChildAge       string `json:"child_age"`
	ChildInterest  string `json:"child_interest"`
	StoryObjective string `json:"story_objective"`
	AuthorName     string `json:"your_name"`
	RecipientEmail string `json:"recipient_email"`
	Language       string `json:"language,omitempty"`
	PageLength     int    `json:"page_length,omitempty"`
}

// Tiers maps a purchased page length to the number of scenes requested
// from the text model. A zero page length is the free tier.
var Tiers = map[int]int{
	0:  3,
	4:  4,
	8:  5,
	12: 6,
}

// Validate checks the fields the form layer requires. It leaves Language
// alone; Lang reads an empty one as "en".
func (in Intake) Validate() error {
	if strings.TrimSpace(in.ChildName) == "" {
		return fmt.Errorf("%w: child_name", ErrMissingField)
	}
	if strings.TrimSpace(in.RecipientEmail) == "" {
		return fmt.Errorf("%w: recipient_email", ErrMissingField)
	}
	if _, ok := Tiers[in.PageLength]; !ok {
		return fmt.Errorf("page_length must be 4, 8 or 12 (got %d)", in.PageLength)
	}
	return nil
}

// SceneCount returns the scene count for the intake's pricing tier.
func (in Intake) SceneCount() int {
	if n, ok := Tiers[in.PageLength]; ok {
		return n
	}
	return Tiers[0]
}

// Lang returns "zh" for Chinese intakes and "en" for everything else.
func (in Intake) Lang() string {
	if strings.EqualFold(strings.TrimSpace(in.Language), "zh") {
		return "zh"
	}
	return "en"
}

// Encode serializes the intake as URL-safe, unpadded base64 of its JSON.
// The token carries no signature: anyone can forge or edit one.
func Encode(in Intake) (string, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("marshal intake: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode reverses Encode. Padded tokens are accepted too.
func Decode(token string) (Intake, error) {
	token = strings.TrimRight(strings.TrimSpace(token), "=")
	if token == "" {
		return Intake{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Intake{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var in Intake
	if err := json.Unmarshal(raw, &in); err != nil {
		return Intake{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return in, nil
}
