package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"launchpad/internal/identity"
	"launchpad/internal/logger"
)

const IdentityKey = "identity"

const (
	sessionIdentityID   = "identity_id"
	sessionIdentityName = "identity_name"
	sessionTheme        = "theme"
	sessionColorScheme  = "color_scheme"
	sessionFullPosts    = "show_full_posts"
	sessionBookmarks    = "bookmarks"
	sessionLikes        = "likes"
	sessionGrantPrefix  = "grant:"
)

// LoadIdentity reads the pseudo-identity from the session, generating and
// storing a new one on first visit.
func LoadIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, _ := session.Get(sessionIdentityID).(string)
		name, _ := session.Get(sessionIdentityName).(string)

		who := identity.Identity{ID: id, Name: name}
		if !who.Valid() {
			who = identity.New()
			session.Set(sessionIdentityID, who.ID)
			session.Set(sessionIdentityName, who.Name)
			if err := session.Save(); err != nil {
				logger.Component("session").WithError(err).Warn("saving new identity failed")
			}
		}
		c.Set(IdentityKey, who)
		c.Next()
	}
}

// CurrentIdentity returns the identity LoadIdentity put on the context.
func CurrentIdentity(c *gin.Context) identity.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if who, ok := v.(identity.Identity); ok {
			return who
		}
	}
	return identity.Identity{}
}

// Preferences are the display settings kept in the session.
type Preferences struct {
	Theme         string
	ColorScheme   string
	ShowFullPosts bool
}

var (
	themes       = []string{"system", "light", "dark"}
	colorSchemes = []string{"indigo", "emerald", "amber", "rose"}
)

func oneOf(v string, allowed []string) string {
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return allowed[0]
}

func GetPreferences(c *gin.Context) Preferences {
	session := sessions.Default(c)
	theme, _ := session.Get(sessionTheme).(string)
	scheme, _ := session.Get(sessionColorScheme).(string)
	full, _ := session.Get(sessionFullPosts).(bool)
	return Preferences{
		Theme:         oneOf(theme, themes),
		ColorScheme:   oneOf(scheme, colorSchemes),
		ShowFullPosts: full,
	}
}

// SavePreferences stores p, replacing unknown values with the defaults.
func SavePreferences(c *gin.Context, p Preferences) error {
	session := sessions.Default(c)
	session.Set(sessionTheme, oneOf(p.Theme, themes))
	session.Set(sessionColorScheme, oneOf(p.ColorScheme, colorSchemes))
	session.Set(sessionFullPosts, p.ShowFullPosts)
	return session.Save()
}

// refSet reads a comma separated list of post refs, oldest first.
func refSet(c *gin.Context, key string) []string {
	raw, _ := sessions.Default(c).Get(key).(string)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func inRefSet(c *gin.Context, key, ref string) bool {
	for _, r := range refSet(c, key) {
		if r == ref {
			return true
		}
	}
	return false
}

// toggleRef adds or removes ref and reports whether it is now in the set.
func toggleRef(c *gin.Context, key, ref string) (bool, error) {
	refs := refSet(c, key)
	kept := refs[:0]
	removed := false
	for _, r := range refs {
		if r == ref {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	if !removed {
		kept = append(kept, ref)
	}

	session := sessions.Default(c)
	session.Set(key, strings.Join(kept, ","))
	return !removed, session.Save()
}

// Bookmarks returns the bookmarked post refs, oldest first.
func Bookmarks(c *gin.Context) []string {
	return refSet(c, sessionBookmarks)
}

func IsBookmarked(c *gin.Context, ref string) bool {
	return inRefSet(c, sessionBookmarks, ref)
}

// ToggleBookmark adds or removes ref and reports whether it is now bookmarked.
func ToggleBookmark(c *gin.Context, ref string) (bool, error) {
	return toggleRef(c, sessionBookmarks, ref)
}

// Likes are a per-browser mark and never touch the upvote counter.
func Likes(c *gin.Context) []string {
	return refSet(c, sessionLikes)
}

func IsLiked(c *gin.Context, ref string) bool {
	return inRefSet(c, sessionLikes, ref)
}

func ToggleLike(c *gin.Context, ref string) (bool, error) {
	return toggleRef(c, sessionLikes, ref)
}

// Grant remembers a secret key that unlocked ref for this session.
func Grant(c *gin.Context, ref, key string) error {
	session := sessions.Default(c)
	session.Set(sessionGrantPrefix+ref, key)
	return session.Save()
}

// GrantedKey returns the key that unlocked ref, or "".
func GrantedKey(c *gin.Context, ref string) string {
	key, _ := sessions.Default(c).Get(sessionGrantPrefix + ref).(string)
	return key
}

func RevokeGrant(c *gin.Context, ref string) error {
	session := sessions.Default(c)
	session.Delete(sessionGrantPrefix + ref)
	return session.Save()
}
