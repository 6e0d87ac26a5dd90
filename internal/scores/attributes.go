package scores

import (
	"fmt"
	"slices"
)

// AttributeName is one dimension of the classifier output.
type AttributeName string

const (
	IdentityAttack   AttributeName = "identityAttack"
	Insult           AttributeName = "insult"
	Profanity        AttributeName = "profanity"
	Threat           AttributeName = "threat"
	SexuallyExplicit AttributeName = "sexuallyExplicit"
	Toxicity         AttributeName = "toxicity"
	SevereToxicity   AttributeName = "severeToxicity"
	LikelyToReject   AttributeName = "likelyToReject"

	// NoAttribute marks a hide decision that is not attributed to any dimension.
	NoAttribute AttributeName = ""
)

// SettingAttributes are the attributes a user can toggle.
var SettingAttributes = []AttributeName{
	IdentityAttack, Insult, Profanity, Threat, SexuallyExplicit,
}

// AllAttributes is the canonical attribute order. The max-score scan walks
// attributes in this order and keeps the first one reaching the maximum.
var AllAttributes = []AttributeName{
	IdentityAttack, Insult, Profanity, Threat, SexuallyExplicit,
	Toxicity, SevereToxicity, LikelyToReject,
}

var displayNames = map[AttributeName]string{
	IdentityAttack:   "Attack on identity",
	Insult:           "Insult",
	Profanity:        "Profanity",
	Threat:           "Threat",
	SexuallyExplicit: "Sexually explicit",
	Toxicity:         "Toxic",
	SevereToxicity:   "Toxic",
	LikelyToReject:   "Low quality", // not shown to users
}

// Articles include the trailing space so they concatenate with the name.
var articlePrefixes = map[AttributeName]string{
	IdentityAttack:   "an ",
	Insult:           "an ",
	Profanity:        "",
	Threat:           "a ",
	SexuallyExplicit: "",
	Toxicity:         "",
	SevereToxicity:   "",
	LikelyToReject:   "",
}

var apiNames = map[AttributeName]string{
	IdentityAttack:   "IDENTITY_ATTACK",
	Insult:           "INSULT",
	Profanity:        "PROFANITY",
	Threat:           "THREAT",
	SexuallyExplicit: "SEXUALLY_EXPLICIT",
	Toxicity:         "TOXICITY",
	SevereToxicity:   "SEVERE_TOXICITY",
	LikelyToReject:   "LIKELY_TO_REJECT",
}

var fromAPINames = func() map[string]AttributeName {
	m := make(map[string]AttributeName, len(apiNames))
	for attr, api := range apiNames {
		m[api] = attr
	}
	return m
}()

func init() {
	for _, table := range []map[AttributeName]string{displayNames, articlePrefixes, apiNames} {
		if err := checkTable(table); err != nil {
			panic(err)
		}
	}
}

// checkTable reports the first attribute missing from a lookup table.
func checkTable(table map[AttributeName]string) error {
	for _, attr := range AllAttributes {
		if _, ok := table[attr]; !ok {
			return fmt.Errorf("attribute %q missing from lookup table", attr)
		}
	}
	if len(table) != len(AllAttributes) {
		return fmt.Errorf("lookup table has %d entries, want %d", len(table), len(AllAttributes))
	}
	return nil
}

// Valid reports whether a is one of the eight known attributes.
func (a AttributeName) Valid() bool {
	return slices.Contains(AllAttributes, a)
}

// IsSetting reports whether a is user-toggleable.
func (a AttributeName) IsSetting() bool {
	return slices.Contains(SettingAttributes, a)
}

// DisplayName returns the human-friendly name, or "" for unknown attributes.
func (a AttributeName) DisplayName() string {
	return displayNames[a]
}

// APIName returns the classifier's name for the attribute, e.g. SEVERE_TOXICITY.
func (a AttributeName) APIName() string {
	return apiNames[a]
}

// ParseAPIAttributeName converts a classifier attribute name to an AttributeName.
func ParseAPIAttributeName(name string) (AttributeName, error) {
	attr, ok := fromAPINames[name]
	if !ok {
		return NoAttribute, fmt.Errorf("unknown API attribute name: %s", name)
	}
	return attr, nil
}

// APIAttributeNames lists classifier attribute names in canonical order.
func APIAttributeNames() []string {
	names := make([]string, len(AllAttributes))
	for i, attr := range AllAttributes {
		names[i] = apiNames[attr]
	}
	return names
}

// AttributeScores maps every attribute to a probability in [0, 1].
//
// A nil map is an absent score set. A non-nil empty map means the classifier
// could not score the text (unsupported language).
type AttributeScores map[AttributeName]float64

// Missing returns the attributes absent from s, in canonical order.
func (s AttributeScores) Missing() []AttributeName {
	var missing []AttributeName
	for _, attr := range AllAttributes {
		if _, ok := s[attr]; !ok {
			missing = append(missing, attr)
		}
	}
	return missing
}

// Complete reports whether all eight attributes are scored.
func (s AttributeScores) Complete() bool {
	return len(s.Missing()) == 0
}

// Unscored reports whether s is a non-nil score set without any scores.
func (s AttributeScores) Unscored() bool {
	return s != nil && len(s) == 0
}

// EnabledAttributes records which setting attributes a user wants considered.
// Keys that are not setting attributes are ignored.
type EnabledAttributes map[AttributeName]bool

// AllEnabled returns an EnabledAttributes with every setting attribute on.
func AllEnabled() EnabledAttributes {
	e := make(EnabledAttributes, len(SettingAttributes))
	for _, attr := range SettingAttributes {
		e[attr] = true
	}
	return e
}

// Enabled reports whether attr is a setting attribute switched on in e.
func (e EnabledAttributes) Enabled(attr AttributeName) bool {
	return attr.IsSetting() && e[attr]
}

// Any reports whether at least one setting attribute is enabled.
func (e EnabledAttributes) Any() bool {
	for _, attr := range SettingAttributes {
		if e[attr] {
			return true
		}
	}
	return false
}

// AttributeScore is a single attribute and its raw score.
type AttributeScore struct {
	Attribute AttributeName `json:"attribute"`
	Score     float64       `json:"score"`
}
