package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// ReplyData feeds the creator reply notification.
type ReplyData struct {
	CreatorName     string
	OriginalMessage string
	Reply           string
}

var replyHTML = htmltemplate.Must(htmltemplate.New("reply_html").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>You received a reply from {{.CreatorName}}!</h2>
  <div style="background-color: #f5f5f5; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <p><strong>Your message:</strong></p>
    <p>{{.OriginalMessage}}</p>
  </div>
  <div style="background-color: #e3f2fd; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <p><strong>Reply:</strong></p>
    <p>{{.Reply}}</p>
  </div>
  <p style="color: #666; font-size: 14px;">This is an automated message from Convozo. Please do not reply to this email.</p>
</div>`))

var replyText = texttemplate.Must(texttemplate.New("reply_text").Parse(`You received a reply from {{.CreatorName}}!

Your message:
{{.OriginalMessage}}

Reply:
{{.Reply}}

This is an automated message from Convozo. Please do not reply to this email.
`))

// RenderReply builds the reply notification. Buyer and creator text is
// HTML-escaped in the HTML part.
func RenderReply(to string, data ReplyData) (Email, error) {
	var html, text bytes.Buffer
	if err := replyHTML.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("render reply html: %w", err)
	}
	if err := replyText.Execute(&text, data); err != nil {
		return Email{}, fmt.Errorf("render reply text: %w", err)
	}
	return Email{
		To:      to,
		Subject: fmt.Sprintf("Reply from %s", data.CreatorName),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
