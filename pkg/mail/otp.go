package mail

import "fmt"

// OTPMessage builds the passcode email delivered during registration, resend
// and login flows. The body mirrors the five minute validity of stored codes.
func OTPMessage(to, name, code string) Message {
	if name == "" {
		name = "User"
	}

	body := fmt.Sprintf(`Hello %s,

Your one-time passcode is: %s

This code will expire in 5 minutes.

If you didn't request this code, please ignore this email.
`, name, code)

	return Message{
		To:      to,
		Subject: "Your one-time passcode",
		Body:    body,
	}
}
