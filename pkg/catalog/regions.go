package catalog

import "strings"

// Region is one node of the static region taxonomy. Codes at country level
// are ISO 3166-1 alpha-2; groupings follow the UN M49 breakdown.
type Region struct {
	Code   string
	Name   string
	Parent string
}

var regionTable = map[string]Region{
	"africa":   {Code: "africa", Name: "Africa"},
	"americas": {Code: "americas", Name: "Americas"},
	"asia":     {Code: "asia", Name: "Asia"},
	"europe":   {Code: "europe", Name: "Europe"},
	"oceania":  {Code: "oceania", Name: "Oceania"},

	"northern-africa":       {Code: "northern-africa", Name: "Northern Africa", Parent: "africa"},
	"sub-saharan-africa":    {Code: "sub-saharan-africa", Name: "Sub-Saharan Africa", Parent: "africa"},
	"caribbean":             {Code: "caribbean", Name: "Caribbean", Parent: "americas"},
	"central-america":       {Code: "central-america", Name: "Central America", Parent: "americas"},
	"northern-america":      {Code: "northern-america", Name: "Northern America", Parent: "americas"},
	"south-america":         {Code: "south-america", Name: "South America", Parent: "americas"},
	"central-asia":          {Code: "central-asia", Name: "Central Asia", Parent: "asia"},
	"eastern-asia":          {Code: "eastern-asia", Name: "Eastern Asia", Parent: "asia"},
	"south-eastern-asia":    {Code: "south-eastern-asia", Name: "South-Eastern Asia", Parent: "asia"},
	"southern-asia":         {Code: "southern-asia", Name: "Southern Asia", Parent: "asia"},
	"western-asia":          {Code: "western-asia", Name: "Western Asia", Parent: "asia"},
	"eastern-europe":        {Code: "eastern-europe", Name: "Eastern Europe", Parent: "europe"},
	"northern-europe":       {Code: "northern-europe", Name: "Northern Europe", Parent: "europe"},
	"southern-europe":       {Code: "southern-europe", Name: "Southern Europe", Parent: "europe"},
	"western-europe":        {Code: "western-europe", Name: "Western Europe", Parent: "europe"},
	"australia-new-zealand": {Code: "australia-new-zealand", Name: "Australia and New Zealand", Parent: "oceania"},

	"at": {Code: "at", Name: "Austria", Parent: "western-europe"},
	"au": {Code: "au", Name: "Australia", Parent: "australia-new-zealand"},
	"be": {Code: "be", Name: "Belgium", Parent: "western-europe"},
	"br": {Code: "br", Name: "Brazil", Parent: "south-america"},
	"ca": {Code: "ca", Name: "Canada", Parent: "northern-america"},
	"ch": {Code: "ch", Name: "Switzerland", Parent: "western-europe"},
	"cn": {Code: "cn", Name: "China", Parent: "eastern-asia"},
	"cz": {Code: "cz", Name: "Czechia", Parent: "eastern-europe"},
	"de": {Code: "de", Name: "Germany", Parent: "western-europe"},
	"dk": {Code: "dk", Name: "Denmark", Parent: "northern-europe"},
	"es": {Code: "es", Name: "Spain", Parent: "southern-europe"},
	"fi": {Code: "fi", Name: "Finland", Parent: "northern-europe"},
	"fr": {Code: "fr", Name: "France", Parent: "western-europe"},
	"gb": {Code: "gb", Name: "United Kingdom", Parent: "northern-europe"},
	"hu": {Code: "hu", Name: "Hungary", Parent: "eastern-europe"},
	"id": {Code: "id", Name: "Indonesia", Parent: "south-eastern-asia"},
	"in": {Code: "in", Name: "India", Parent: "southern-asia"},
	"it": {Code: "it", Name: "Italy", Parent: "southern-europe"},
	"jp": {Code: "jp", Name: "Japan", Parent: "eastern-asia"},
	"kr": {Code: "kr", Name: "South Korea", Parent: "eastern-asia"},
	"mx": {Code: "mx", Name: "Mexico", Parent: "central-america"},
	"nl": {Code: "nl", Name: "Netherlands", Parent: "western-europe"},
	"no": {Code: "no", Name: "Norway", Parent: "northern-europe"},
	"nz": {Code: "nz", Name: "New Zealand", Parent: "australia-new-zealand"},
	"pl": {Code: "pl", Name: "Poland", Parent: "eastern-europe"},
	"pt": {Code: "pt", Name: "Portugal", Parent: "southern-europe"},
	"ru": {Code: "ru", Name: "Russia", Parent: "eastern-europe"},
	"se": {Code: "se", Name: "Sweden", Parent: "northern-europe"},
	"ua": {Code: "ua", Name: "Ukraine", Parent: "eastern-europe"},
	"us": {Code: "us", Name: "United States", Parent: "northern-america"},
	"za": {Code: "za", Name: "South Africa", Parent: "sub-saharan-africa"},
}

// RegionByCode looks up one taxonomy node.
func RegionByCode(code string) (Region, bool) {
	region, ok := regionTable[code]
	return region, ok
}

// RegionTags returns the lowercased names of the region and all its
// ancestors. Unknown codes yield the code itself so a taxonomy gap never
// hides an entry from listings.
func RegionTags(code string) []string {
	region, ok := regionTable[code]
	if !ok {
		return []string{strings.ToLower(code)}
	}

	tags := make([]string, 0, 3)
	for depth := 0; depth < 8; depth++ {
		tags = append(tags, strings.ToLower(region.Name))
		if region.Parent == "" {
			break
		}
		region, ok = regionTable[region.Parent]
		if !ok {
			break
		}
	}
	return tags
}
