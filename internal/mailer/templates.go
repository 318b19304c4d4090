package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

const avatarFallbackBase = "https://ui-avatars.com/api/"

// ExchangeEmail asks a colleague to take over a shift.
type ExchangeEmail struct {
	To              string `json:"to" validate:"required,email"`
	RequesterName   string `json:"requesterName" validate:"required"`
	RequesterRole   string `json:"requesterRole" validate:"required"`
	RequesterAvatar string `json:"requesterAvatar" validate:"omitempty,url"`
	ShiftDate       string `json:"shiftDate" validate:"required,datetime=2006-01-02"`
	AcceptURL       string `json:"acceptUrl" validate:"required,url"`
	RejectURL       string `json:"rejectUrl" validate:"required,url"`
}

// ResponseEmail tells the requester how their colleague answered.
type ResponseEmail struct {
	To            string `json:"to" validate:"required,email"`
	ResponderName string `json:"responderName" validate:"required"`
	ShiftDate     string `json:"shiftDate" validate:"required,datetime=2006-01-02"`
	Accepted      bool   `json:"accepted"`
}

// Message is a rendered email ready for a Sender.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

var exchangeTemplate = template.Must(template.New("exchange").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <table>
    <tr>
      <td><img src="{{.Avatar}}" alt="{{.Name}}" width="64" height="64" style="border-radius: 50%;"></td>
      <td>
        <p><strong>{{.Name}}</strong> ({{.Role}})</p>
        <p>would like to exchange the shift on <strong>{{.ShiftDate}}</strong> with you.</p>
      </td>
    </tr>
  </table>
  <p>
    <a href="{{.AcceptURL}}">Accept</a>
    &nbsp;|&nbsp;
    <a href="{{.RejectURL}}">Reject</a>
  </p>
</body>
</html>
`))

var responseTemplate = template.Must(template.New("response").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <p><strong>{{.Name}}</strong> has {{.Verb}} your request to exchange the shift on <strong>{{.ShiftDate}}</strong>.</p>
</body>
</html>
`))

// AvatarOrFallback returns the avatar URL or a generated initials image.
func AvatarOrFallback(name, avatar string) string {
	if trimmed := strings.TrimSpace(avatar); trimmed != "" {
		return trimmed
	}
	q := url.Values{}
	q.Set("name", strings.TrimSpace(name))
	q.Set("background", "random")
	return avatarFallbackBase + "?" + q.Encode()
}

// RenderExchange builds the request email.
func RenderExchange(in ExchangeEmail) (Message, error) {
	var body bytes.Buffer
	err := exchangeTemplate.Execute(&body, map[string]string{
		"Avatar":    AvatarOrFallback(in.RequesterName, in.RequesterAvatar),
		"Name":      in.RequesterName,
		"Role":      in.RequesterRole,
		"ShiftDate": in.ShiftDate,
		"AcceptURL": in.AcceptURL,
		"RejectURL": in.RejectURL,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render exchange email: %w", err)
	}
	return Message{
		To:      in.To,
		Subject: fmt.Sprintf("Shift exchange request for %s", in.ShiftDate),
		HTML:    body.String(),
		Text: fmt.Sprintf("%s (%s) would like to exchange the shift on %s with you.\nAccept: %s\nReject: %s\n",
			in.RequesterName, in.RequesterRole, in.ShiftDate, in.AcceptURL, in.RejectURL),
	}, nil
}

// RenderResponse builds the answer email.
func RenderResponse(in ResponseEmail) (Message, error) {
	verb := "rejected"
	if in.Accepted {
		verb = "accepted"
	}
	var body bytes.Buffer
	err := responseTemplate.Execute(&body, map[string]string{
		"Name":      in.ResponderName,
		"Verb":      verb,
		"ShiftDate": in.ShiftDate,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render response email: %w", err)
	}
	return Message{
		To:      in.To,
		Subject: fmt.Sprintf("Shift exchange %s", verb),
		HTML:    body.String(),
		Text:    fmt.Sprintf("%s has %s your request to exchange the shift on %s.\n", in.ResponderName, verb, in.ShiftDate),
	}, nil
}
