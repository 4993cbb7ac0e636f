package auth

import (
	"net/http"
	"time"
)

// RequestCookies is a CookieStore over one HTTP exchange. Values set during
// the request are visible to later Get calls on the same jar.
type RequestCookies struct {
	r       *http.Request
	w       http.ResponseWriter
	pending map[string]*string
}

func NewRequestCookies(w http.ResponseWriter, r *http.Request) *RequestCookies {
	return &RequestCookies{r: r, w: w, pending: make(map[string]*string)}
}

func (c *RequestCookies) Get(name string) (string, bool) {
	if v, ok := c.pending[name]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	cookie, err := c.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return cookie.Value, true
}

func (c *RequestCookies) Set(name, value string, opts CookieOptions) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     opts.Path,
		Expires:  opts.Expires,
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
	c.pending[name] = &value
}

func (c *RequestCookies) Delete(name string, opts CookieOptions) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     opts.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
	c.pending[name] = nil
}
