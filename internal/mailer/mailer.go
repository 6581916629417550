package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// Attachment is a file attached to a Message.
type Attachment struct {
	Name string
	Type string
	Data []byte
}

// Message is one outbound email.
type Message struct {
	From        string
	FromName    string
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Sender delivers a Message in a single blocking call.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

const supportURL = "https://gogetfunding.com/give-a-child-the-gift-of-their-own-story/"

type emailCopy struct {
	subject   string
	greeting  string
	delivered string
	named     string
	audio     string
	free      string
	support   string
	signoff   string
	fileName  string
}

var copyEN = emailCopy{
	subject:   "Your personalized storybook",
	greeting:  "<p>Hello!</p>",
	delivered: "<p>We have generated the personalized storybook in the PDF attachment.</p>",
	named:     "<p>We have generated the personalized storybook '%s' in the PDF attachment.</p>",
	audio:     "<p>Click <a href='%s'>HERE</a> to download the audio book.</p>",
	free: "<p>✨ Your personalized children storybook is completely <strong>free to enjoy!</strong> Hope you like it!" +
		"<br/>If you love it and want to support the creator, a small donation would help keep the project growing and allow me to build even more magical features for families.</p>",
	support:  "<p>💛 Support the project: <a href='" + supportURL + "'>HERE</a>. Every gesture counts and thank you!</p>",
	signoff:  "<p>Best regards,<br/>The StoryGenerator Team</p>",
	fileName: "storybook.pdf",
}

var copyZH = emailCopy{
	subject:   "您的个性化儿童故事书",
	greeting:  "<p>您好！</p>",
	delivered: "<p>我们已生成了个性化故事书，请见附件中的PDF文件。</p>",
	named:     "<p>我们已生成了个性化故事书《%s》，请见附件中的PDF文件。</p>",
	audio:     "<p>点击<a href='%s'>这里</a>下载有声故事。</p>",
	free: "<p>✨ 您的个性化儿童故事书完全免费享用！希望您喜欢它！" +
		"<br/>如果您喜欢并想支持创作者，小额捐款将有助于项目的发展，并让我能够为家庭构建更多神奇的功能。</p>",
	support:  "<p>💛 支持该项目：<a href='" + supportURL + "'>点击这里</a>。每一份心意都值得感谢！</p>",
	signoff:  "<p>此致，<br/>故事生成器团队</p>",
	fileName: "故事书.pdf",
}

// Compose builds the delivery email for a finished book. The audio paragraph
// is included only when audioURL is set.
func Compose(lang, to, title, audioURL string, pdf []byte) Message {
	c := copyEN
	if lang == "zh" {
		c = copyZH
	}

	var b strings.Builder
	b.WriteString(c.greeting)
	if title != "" {
		fmt.Fprintf(&b, c.named, html.EscapeString(title))
	} else {
		b.WriteString(c.delivered)
	}
	if audioURL != "" {
		fmt.Fprintf(&b, c.audio, html.EscapeString(audioURL))
	}
	b.WriteString(c.free)
	b.WriteString(c.support)
	b.WriteString(c.signoff)

	return Message{
		To:      to,
		Subject: c.subject,
		HTML:    b.String(),
		Attachments: []Attachment{
			{Name: c.fileName, Type: "application/pdf", Data: pdf},
		},
	}
}
