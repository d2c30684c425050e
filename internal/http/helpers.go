package http

import (
	"net/http"
	"net/url"
	"strings"
)

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// taskDate and taskTime split a stored task datetime for the edit form.
func taskDate(dateTime string) string {
	date, _, _ := strings.Cut(dateTime, " ")
	return date
}

func taskTime(dateTime string) string {
	_, clock, _ := strings.Cut(dateTime, " ")
	return clock
}

// postForm parses the body once; the session middleware may already have
// done so while checking the CSRF token.
func postForm(r *http.Request) url.Values {
	_ = r.ParseForm()
	return r.PostForm
}
