package actor

import "slices"

// Traits is the fixed trait vocabulary.
var Traits = []string{
	"Simp", "Strong", "Genius", "Devious", "Weak", "Runner", "Slug", "Tall",
	"Short", "Dumb", "Gay", "Attractive", "Ugly", "Villain", "Loner", "Scared",
	"Ninja", "Fighter", "Shooter", "Caveman", "Gangsta", "Cold", "Indomitable", "Aware",
}

// IsTrait reports whether t belongs to the trait vocabulary.
func IsTrait(t string) bool {
	return slices.Contains(Traits, t)
}

// ClassAliases maps canonical weapon class identifiers to display names.
var ClassAliases = map[string]string{
	"class:melee:blunt":      "blunt weapon",
	"class:melee:piercing":   "piercing weapon",
	"class:melee:cutting":    "blade",
	"class:melee:temporary":  "improvised weapon",
	"class:melee:special":    "special melee",
	"class:firearm:pistol":   "pistol",
	"class:firearm:revolver": "revolver",
	"class:firearm:assault":  "assault rifle",
	"class:firearm:smg":      "submachine gun",
	"class:firearm:sniper":   "sniper rifle",
	"class:firearm:rocket":   "rocket launcher",
	"class:firearm:shotgun":  "shotgun",
}

// DisplayItem returns the display alias for a class identifier, or the tag itself.
func DisplayItem(tag string) string {
	if alias, ok := ClassAliases[tag]; ok {
		return alias
	}
	return tag
}
