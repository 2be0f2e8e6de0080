package handlers

import (
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"launchpad/internal/forum"
	"launchpad/internal/middleware"
	"launchpad/internal/store"
)

const siteName = "Launchpad"

// Render helper to inject common variables like the current identity
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	obj["Identity"] = middleware.CurrentIdentity(c)
	obj["Prefs"] = middleware.GetPreferences(c)
	obj["CurrentPath"] = c.Request.URL.Path
	obj["SiteName"] = siteName
	if _, ok := obj["Title"]; !ok {
		obj["Title"] = siteName
	}

	c.HTML(code, name, obj)
}

// HTMX Redirect helper
func HtmxRedirect(c *gin.Context, path string) {
	c.Header("HX-Redirect", path)
	c.Status(http.StatusOK) // HTMX handles the redirect on client side via header
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// redirect sends plain requests a 302 and HTMX requests an HX-Redirect.
func redirect(c *gin.Context, path string) {
	if isHTMX(c) {
		HtmxRedirect(c, path)
		return
	}
	c.Redirect(http.StatusFound, path)
}

// Error helper
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message, "Title": "Something went wrong"})
}

// renderFailure renders err as an error page, or as plain text for HTMX.
func renderFailure(c *gin.Context, err error) {
	code := statusFor(err)
	if isHTMX(c) {
		c.String(code, msg(err))
		return
	}
	RenderError(c, code, msg(err))
}

func statusFor(err error) int {
	var verr *forum.ValidationError
	switch {
	case errors.Is(err, forum.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, forum.ErrFixtureReadOnly), forum.IsAuthError(err):
		return http.StatusForbidden
	case errors.As(err, &verr), errors.Is(err, forum.ErrEmptyComment), errors.Is(err, forum.ErrCommentTooLong):
		return http.StatusBadRequest
	}
	var serr *store.Error
	if errors.As(err, &serr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// msg turns err into a sentence for the page. Store failures are not
// spelled out.
func msg(err error) string {
	if err == nil {
		return ""
	}
	var verr *forum.ValidationError
	if errors.As(err, &verr) {
		return capitalize(verr.Msg)
	}
	switch {
	case errors.Is(err, forum.ErrNotFound):
		return "Post not found"
	case errors.Is(err, forum.ErrFixtureReadOnly),
		forum.IsAuthError(err),
		errors.Is(err, forum.ErrEmptyComment),
		errors.Is(err, forum.ErrCommentTooLong):
		return capitalize(rootCause(err).Error())
	}
	var serr *store.Error
	if errors.As(err, &serr) {
		return "The forum could not reach its database, please try again"
	}
	return capitalize(err.Error())
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func capitalize(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}

// backTo returns the referring path on this site, or fallback.
func backTo(c *gin.Context, fallback string) string {
	ref := c.Request.Referer()
	if i := strings.Index(ref, "://"); i >= 0 {
		rest := ref[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 && rest[:j] == c.Request.Host {
			return rest[j:]
		}
	}
	return fallback
}
