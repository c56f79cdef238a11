package www

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	sessionName    = "solarquote"
	sessionFormKey = "form"
	sessionMaxAge  = 30 * 24 * 60 * 60
)

// newSessionStore keeps the last quote form of a visitor in a signed cookie. Without
// a key a random one is generated, the cookies are then invalid after a restart.
func newSessionStore(key *string) (*sessions.CookieStore, error) {
	var hashKey []byte
	if key != nil && *key != "" {
		hashKey = []byte(*key)
	} else {
		hashKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil {
			return nil, fmt.Errorf("failed to generate session key")
		}
	}

	store := sessions.NewCookieStore(hashKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

// loadForm returns the stored form, or the default form for new visitors and
// cookies that don't verify.
func loadForm(store sessions.Store, r *http.Request) QuoteForm {
	session, err := store.Get(r, sessionName)
	if err != nil {
		return DefaultQuoteForm()
	}
	encoded, ok := session.Values[sessionFormKey].(string)
	if !ok {
		return DefaultQuoteForm()
	}
	v, err := url.ParseQuery(encoded)
	if err != nil {
		return DefaultQuoteForm()
	}
	f, err := ParseQuoteForm(v)
	if err != nil {
		return DefaultQuoteForm()
	}
	return f
}

func saveForm(store sessions.Store, w http.ResponseWriter, r *http.Request, f QuoteForm) error {
	// A session that fails to decode is replaced by the new one
	session, _ := store.Get(r, sessionName)
	session.Values[sessionFormKey] = f.Values().Encode()
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
