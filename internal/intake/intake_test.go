package intake

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Intake {
	return Intake{
		ChildName:      "Mia",
		ChildAge:       "5",
		ChildInterest:  "dinosaurs & space",
		StoryObjective: "sharing with friends",
		AuthorName:     "Grandma Jo",
		RecipientEmail: "parent@example.com",
		Language:       "en",
		PageLength:     8,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Run("english intake", func(t *testing.T) {
		in := sample()
		token, err := Encode(in)
		require.NoError(t, err)

		got, err := Decode(token)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("unicode intake", func(t *testing.T) {
		in := sample()
		in.ChildName = "小明"
		in.Language = "zh"
		in.StoryObjective = "学会分享 ✨"

		token, err := Encode(in)
		require.NoError(t, err)

		got, err := Decode(token)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("zero value", func(t *testing.T) {
		token, err := Encode(Intake{})
		require.NoError(t, err)

		got, err := Decode(token)
		require.NoError(t, err)
		assert.Equal(t, Intake{}, got)
	})
}

func TestEncodeIsURLSafeAndUnpadded(t *testing.T) {
	for i := 0; i < 8; i++ {
		in := sample()
		in.ChildName = strings.Repeat("?", i) + "~>"
		token, err := Encode(in)
		require.NoError(t, err)

		assert.NotContains(t, token, "=")
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
	}
}

func TestDecodeAcceptsPaddedToken(t *testing.T) {
	in := sample()
	token, err := Encode(in)
	require.NoError(t, err)

	padded := token + strings.Repeat("=", (4-len(token)%4)%4)
	got, err := Decode(padded)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestDecodeUsesWireKeys(t *testing.T) {
	raw := `{"child_name":"Leo","child_age":"3","child_interest":"trains","story_objective":"bedtime","your_name":"Dad","recipient_email":"d@example.com","language":"zh","page_length":12}`
	token := base64.RawURLEncoding.EncodeToString([]byte(raw))

	got, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "Leo", got.ChildName)
	assert.Equal(t, "Dad", got.AuthorName)
	assert.Equal(t, "d@example.com", got.RecipientEmail)
	assert.Equal(t, 12, got.PageLength)
	assert.Equal(t, "zh", got.Lang())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not base64", "%%%"},
		{"not json", base64.RawURLEncoding.EncodeToString([]byte("hello"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, sample().Validate())
	})

	t.Run("missing child name", func(t *testing.T) {
		in := sample()
		in.ChildName = "  "
		err := in.Validate()
		assert.ErrorIs(t, err, ErrMissingField)
		assert.Contains(t, err.Error(), "child_name")
	})

	t.Run("missing email", func(t *testing.T) {
		in := sample()
		in.RecipientEmail = ""
		err := in.Validate()
		assert.ErrorIs(t, err, ErrMissingField)
		assert.Contains(t, err.Error(), "recipient_email")
	})

	t.Run("unknown page length", func(t *testing.T) {
		in := sample()
		in.PageLength = 7
		assert.Error(t, in.Validate())
	})
	t.Run("empty language is valid and reads as en", func(t *testing.T) {
		in := sample()
		in.Language = ""
		require.NoError(t, in.Validate())
		assert.Empty(t, in.Language)
		assert.Equal(t, "en", in.Lang())
	})
}

func TestSceneCount(t *testing.T) {
	tests := map[int]int{0: 3, 4: 4, 8: 5, 12: 6, 99: 3}
	for pages, want := range tests {
		in := sample()
		in.PageLength = pages
		assert.Equal(t, want, in.SceneCount(), "page_length %d", pages)
	}
}

func TestLang(t *testing.T) {
	tests := map[string]string{"": "en", "en": "en", "zh": "zh", "ZH": "zh", "fr": "en"}
	for lang, want := range tests {
		in := Intake{Language: lang}
		assert.Equal(t, want, in.Lang(), "language %q", lang)
	}
}
