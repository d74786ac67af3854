// Package templates provides HTML email templates.
package templates

import (
	"fmt"
	"html"
)

// WelcomeEmailProps holds the values interpolated into the welcome email.
type WelcomeEmailProps struct {
	Firstname string
	Tier      string
}

// GetWelcomeEmailContent builds the body of the post-conversion welcome email.
func GetWelcomeEmailContent(props WelcomeEmailProps) string {
	name := html.EscapeString(props.Firstname)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`
		<h1 style="color:#1a3c2e;font-size:24px;">Welcome, %s</h1>
		<p>Your account is ready. Your conversation history, daily streak, and
		preferences now follow you across devices.</p>
		<p>You're on the <strong>%s</strong> plan.</p>
		<p>See you inside,<br/>The Eco team</p>`,
		name, html.EscapeString(props.Tier))
}

// GetEmailLayout wraps content in the shared outer layout.
func GetEmailLayout(content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background-color:#f4f6f4;font-family:Helvetica,Arial,sans-serif;">
	<div style="max-width:560px;margin:32px auto;background:#ffffff;border-radius:8px;padding:32px;">
		%s
	</div>
</body>
</html>`, content)
}
