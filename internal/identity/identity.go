// Package identity provides the per-client pseudo-identity. It is generated
// once, persisted on the client side and never verified: any client can
// forge one, so it only drives "is this my post" display decisions.
package identity

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var displayNames = []string{"TechEnthusiast", "StartupGuru", "InnovatorX", "CodeMaster", "VisionaryDev"}

var idPattern = regexp.MustCompile(`^user_[a-z0-9]{9}$`)

type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// New generates a fresh pseudo-identity.
func New() Identity {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return Identity{
		ID:   "user_" + raw[:9],
		Name: fmt.Sprintf("%s%d", displayNames[rand.IntN(len(displayNames))], rand.IntN(1000)),
	}
}

// Valid reports whether the identity looks like one New produced.
func (i Identity) Valid() bool {
	return idPattern.MatchString(i.ID) && strings.TrimSpace(i.Name) != ""
}

func (i Identity) String() string {
	return i.Name + " (" + i.ID + ")"
}
