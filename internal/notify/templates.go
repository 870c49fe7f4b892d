package notify

import (
	htmltemplate "html/template"
	texttemplate "text/template"
)

type linkData struct {
	Username string
	URL      string
}

var verificationText = texttemplate.Must(texttemplate.New("verify.txt").Parse(`Welcome to LogiTrades, {{.Username}}!

Please verify your email by visiting the following link:
{{.URL}}

This link expires in 24 hours.

If you didn't create this account, please ignore this email.`))

var resetText = texttemplate.Must(texttemplate.New("reset.txt").Parse(`Hi {{.Username}},

We received a request to reset your password. Click the link below to set a new password:
{{.URL}}

This link expires in 1 hour.

If you didn't request this, please ignore this email.`))

const htmlLayout = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); padding: 30px; border-radius: 10px 10px 0 0; text-align: center;">
        <h1 style="color: white; margin: 0; font-size: 28px;">{{template "title"}}</h1>
    </div>
    <div style="background: #ffffff; padding: 30px; border: 1px solid #e0e0e0; border-top: none; border-radius: 0 0 10px 10px;">
        <p style="font-size: 16px;">Hi <strong>{{.Username}}</strong>,</p>
        <p style="font-size: 16px;">{{template "lead"}}</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="{{.URL}}" style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 14px 30px; text-decoration: none; border-radius: 6px; font-weight: bold; display: inline-block; font-size: 16px;">{{template "button"}}</a>
        </div>
        <p style="font-size: 14px; color: #666;">Or copy and paste this link into your browser:</p>
        <p style="font-size: 14px; color: #667eea; word-break: break-all;">{{.URL}}</p>
        <hr style="border: none; border-top: 1px solid #e0e0e0; margin: 20px 0;">
        <p style="font-size: 12px; color: #999;">{{template "footer"}}</p>
    </div>
</body>
</html>`

func htmlPage(name, blocks string) *htmltemplate.Template {
	t := htmltemplate.Must(htmltemplate.New(name).Parse(htmlLayout))
	return htmltemplate.Must(t.Parse(blocks))
}

var verificationHTML = htmlPage("verify.html", `
{{define "title"}}Welcome to LogiTrades!{{end}}
{{define "lead"}}Thanks for signing up! Please verify your email address by clicking the button below:{{end}}
{{define "button"}}Verify Email{{end}}
{{define "footer"}}This link expires in 24 hours. If you didn't create this account, please ignore this email.{{end}}`)

var resetHTML = htmlPage("reset.html", `
{{define "title"}}Reset Your Password{{end}}
{{define "lead"}}We received a request to reset your password. Click the button below to set a new password:{{end}}
{{define "button"}}Reset Password{{end}}
{{define "footer"}}This link expires in 1 hour. If you didn't request this, please ignore this email.{{end}}`)
