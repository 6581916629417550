package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdf = []byte("%PDF-1.3 fake")

func TestCompose(t *testing.T) {
	t.Run("english with audio", func(t *testing.T) {
		m := Compose("en", "p@example.com", "Mia & the Moon", "https://cdn.example.com/a.mp3", pdf)
		assert.Equal(t, "Your personalized storybook", m.Subject)
		assert.Equal(t, "p@example.com", m.To)
		assert.Contains(t, m.HTML, "<a href='https://cdn.example.com/a.mp3'>HERE</a>")
		assert.Contains(t, m.HTML, "Mia &amp; the Moon")
		require.Len(t, m.Attachments, 1)
		assert.Equal(t, "storybook.pdf", m.Attachments[0].Name)
		assert.Equal(t, "application/pdf", m.Attachments[0].Type)
		assert.Equal(t, pdf, m.Attachments[0].Data)
	})

	t.Run("no audio paragraph without a url", func(t *testing.T) {
		m := Compose("en", "p@example.com", "", "", pdf)
		assert.NotContains(t, m.HTML, "audio book")
		assert.Contains(t, m.HTML, "in the PDF attachment")
	})

	t.Run("chinese", func(t *testing.T) {
		m := Compose("zh", "p@example.com", "小鲸鱼", "https://cdn.example.com/a.mp3", pdf)
		assert.Equal(t, "您的个性化儿童故事书", m.Subject)
		assert.Contains(t, m.HTML, "《小鲸鱼》")
		assert.Contains(t, m.HTML, "https://cdn.example.com/a.mp3")
		assert.Equal(t, "故事书.pdf", m.Attachments[0].Name)
	})
}

func TestSendGridSender(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSendGridSender("sg-key", "books@example.com", "Storybook", srv.URL)
	err := s.Send(context.Background(), Compose("en", "p@example.com", "T", "", pdf))
	require.NoError(t, err)

	assert.Equal(t, "Your personalized storybook", body["subject"])
	atts := body["attachments"].([]any)
	require.Len(t, atts, 1)
	att := atts[0].(map[string]any)
	assert.Equal(t, "storybook.pdf", att["filename"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(pdf), att["content"])
	from := body["from"].(map[string]any)
	assert.Equal(t, "books@example.com", from["email"])
}

func TestSendGridSenderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad"}]}`))
	}))
	defer srv.Close()

	err := NewSendGridSender("k", "a@example.com", "", srv.URL).Send(context.Background(), Message{To: "b@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")

	err = NewSendGridSender("", "a@example.com", "", srv.URL).Send(context.Background(), Message{To: "b@example.com"})
	assert.Error(t, err)
}

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	return &sesv2.SendEmailOutput{}, f.err
}

func TestSESSender(t *testing.T) {
	fake := &fakeSES{}
	s := &SESSender{client: fake, from: "books@example.com", fromName: "Storybook"}

	require.NoError(t, s.Send(context.Background(), Compose("zh", "p@example.com", "小鲸鱼", "", pdf)))
	require.NotNil(t, fake.in)
	assert.Equal(t, "books@example.com", *fake.in.FromEmailAddress)
	assert.Equal(t, []string{"p@example.com"}, fake.in.Destination.ToAddresses)

	msg, err := mail.ReadMessage(bytes.NewReader(fake.in.Content.Raw.Data))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "您的个性化儿童故事书", subject)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	htmlPart, err := mr.NextPart()
	require.NoError(t, err)
	html := decodePart(t, htmlPart)
	assert.True(t, strings.Contains(string(html), "《小鲸鱼》"))

	attPart, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, pdf, decodePart(t, attPart))
	assert.Contains(t, attPart.Header.Get("Content-Disposition"), "attachment")

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSESSenderError(t *testing.T) {
	s := &SESSender{client: &fakeSES{err: errors.New("throttled")}, from: "a@example.com"}
	err := s.Send(context.Background(), Message{To: "b@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func decodePart(t *testing.T, p *multipart.Part) []byte {
	t.Helper()
	raw, err := io.ReadAll(p)
	require.NoError(t, err)
	out, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(raw), "\r\n", ""))
	require.NoError(t, err)
	return out
}
