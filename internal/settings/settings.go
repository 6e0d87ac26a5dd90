package settings

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tune/internal/scores"
)

var ErrInvalidThreshold = errors.New("threshold must be within [0, 1]")

const DefaultThreshold = 0.80

type Theme string

const (
	ThemeDotted Theme = "Dotted"
	ThemeDebug  Theme = "Debug"
)

type InstallState string

const (
	NewlyInstalled InstallState = "newlyInstalled"
	SetupCompleted InstallState = "setupCompleted"
)

// Website is a site a user can switch filtering on or off for.
type Website string

const (
	YouTube  Website = "youtube"
	Twitter  Website = "twitter"
	Facebook Website = "facebook"
	Reddit   Website = "reddit"
	Disqus   Website = "disqus"
)

var Websites = []Website{YouTube, Twitter, Facebook, Reddit, Disqus}

var websiteDisplayNames = map[Website]string{
	YouTube:  "YouTube",
	Twitter:  "Twitter",
	Facebook: "Facebook",
	Reddit:   "Reddit",
	Disqus:   "Disqus",
}

func (w Website) DisplayName() string { return websiteDisplayNames[w] }

func (w Website) Valid() bool {
	_, ok := websiteDisplayNames[w]
	return ok
}

type EnabledWebsites map[Website]bool

type Settings struct {
	UserID          string                   `json:"userId"`
	SessionID       string                   `json:"sessionId"`
	Threshold       float64                  `json:"threshold"`
	Attributes      scores.EnabledAttributes `json:"attributes"`
	SubtypesEnabled bool                     `json:"subtypesEnabled"`
	Theme           Theme                    `json:"theme"`
	Enabled         bool                     `json:"enabled"`
	Websites        EnabledWebsites          `json:"websites"`
	InstallState    InstallState             `json:"installState"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

// Default returns the settings of a fresh install, with a new session id.
func Default(userID string) Settings {
	websites := make(EnabledWebsites, len(Websites))
	for _, w := range Websites {
		websites[w] = true
	}
	return Settings{
		UserID:          userID,
		SessionID:       uuid.NewString(),
		Threshold:       DefaultThreshold,
		Attributes:      scores.AllEnabled(),
		SubtypesEnabled: false,
		Theme:           ThemeDotted,
		Enabled:         true,
		Websites:        websites,
		InstallState:    NewlyInstalled,
	}
}

func (s Settings) Validate() error {
	if s.UserID == "" {
		return errors.New("user id is required")
	}
	if math.IsNaN(s.Threshold) || s.Threshold < 0 || s.Threshold > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, s.Threshold)
	}
	if s.Theme != ThemeDotted && s.Theme != ThemeDebug {
		return fmt.Errorf("unknown theme %q", s.Theme)
	}
	if s.InstallState != NewlyInstalled && s.InstallState != SetupCompleted {
		return fmt.Errorf("unknown install state %q", s.InstallState)
	}
	for attr := range s.Attributes {
		if !attr.IsSetting() {
			return fmt.Errorf("attribute %q is not user-configurable", attr)
		}
	}
	for w := range s.Websites {
		if !w.Valid() {
			return fmt.Errorf("unknown website %q", w)
		}
	}
	return nil
}

// ActiveOn reports whether filtering runs for the given site.
// Unknown sites follow the global switch alone.
func (s Settings) ActiveOn(site Website) bool {
	if !s.Enabled {
		return false
	}
	if !site.Valid() {
		return true
	}
	return s.Websites[site]
}

// FilterChanged reports whether moving from old to updated can change
// which comments are hidden or how they render.
func FilterChanged(old, updated Settings) bool {
	return old.Threshold != updated.Threshold ||
		!maps.Equal(old.Attributes, updated.Attributes) ||
		old.Theme != updated.Theme ||
		old.SubtypesEnabled != updated.SubtypesEnabled
}

// EnabledChanged reports whether the global or per-site switches changed.
func EnabledChanged(old, updated Settings) bool {
	return old.Enabled != updated.Enabled || !maps.Equal(old.Websites, updated.Websites)
}
