// Package flash carries one-shot user notices across a redirect in a cookie.
// Messages queue on the outgoing response and drain on the next render.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const cookieName = "inkwell_flash"

type Message struct {
	Category string `json:"category"` // "success" or "error"
	Text     string `json:"text"`
}

func Success(text string) Message { return Message{Category: "success", Text: text} }
func Error(text string) Message   { return Message{Category: "error", Text: text} }

// Set queues messages for the next rendered page.
func Set(w http.ResponseWriter, msgs []Message) {
	if len(msgs) == 0 {
		return
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    base64.URLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns any queued messages and clears the cookie.
func Pop(w http.ResponseWriter, r *http.Request) []Message {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	data, err := base64.URLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil
	}
	return msgs
}
