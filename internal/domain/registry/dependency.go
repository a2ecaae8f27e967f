package registry

import (
	"strings"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
)

// Category groups dependency edges.
type Category uint8

const (
	CategoryPackage Category = 1 << iota
	CategoryManage
	CategorySearchableName

	CategoryNone Category = 0
	CategoryAll           = CategoryPackage | CategoryManage | CategorySearchableName
)

// categories lists the single categories in storage order.
var categories = [...]Category{CategoryPackage, CategoryManage, CategorySearchableName}

func categorySlot(c Category) int {
	switch c {
	case CategoryPackage:
		return 0
	case CategoryManage:
		return 1
	default:
		return 2
	}
}

func (c Category) String() string {
	if c == CategoryNone {
		return "None"
	}
	var parts []string
	if c&CategoryPackage != 0 {
		parts = append(parts, "Package")
	}
	if c&CategoryManage != 0 {
		parts = append(parts, "Manage")
	}
	if c&CategorySearchableName != 0 {
		parts = append(parts, "SearchableName")
	}
	return strings.Join(parts, "|")
}

// Property flags an edge. A cleared bit is the opposite property:
// Soft, EditorOnly, NotBuild or Indirect.
type Property uint8

const (
	// PropertyHard is set on package edges that must load with the referencer.
	PropertyHard Property = 1 << iota
	// PropertyGame is set on package edges used at runtime.
	PropertyGame
	// PropertyBuild is set on package edges needed to build the referencer.
	PropertyBuild
	// PropertyDirect is set on manage edges assigned explicitly.
	PropertyDirect

	PropertyNone         Property = 0
	PropertyPackageMask           = PropertyHard | PropertyGame | PropertyBuild
	PropertyManageMask            = PropertyDirect
	PropertySearchableNameMask    = PropertyNone
)

func (p Property) String() string {
	pick := func(set bool, yes, no string) string {
		if set {
			return yes
		}
		return no
	}
	return strings.Join([]string{
		pick(p&PropertyHard != 0, "Hard", "Soft"),
		pick(p&PropertyGame != 0, "Game", "EditorOnly"),
		pick(p&PropertyBuild != 0, "Build", "NotBuild"),
		pick(p&PropertyDirect != 0, "Direct", "Indirect"),
	}, "|")
}

// QueryFlags select edges by property. A flag and its opposite cancel out.
type QueryFlags uint16

const (
	QueryHard QueryFlags = 1 << iota
	QuerySoft
	QueryGame
	QueryEditorOnly
	QueryBuild
	QueryNotBuild
	QueryDirect
	QueryIndirect

	QueryNoRequirements QueryFlags = 0
)

// DependencyQuery is a compiled QueryFlags value: an edge matches when all
// Required bits are set and no Excluded bit is.
type DependencyQuery struct {
	Required Property
	Excluded Property
}

// NewQuery compiles flags.
func NewQuery(flags QueryFlags) DependencyQuery {
	var q DependencyQuery
	pair := func(yes, no QueryFlags, p Property) {
		switch {
		case flags&yes != 0 && flags&no == 0:
			q.Required |= p
		case flags&no != 0 && flags&yes == 0:
			q.Excluded |= p
		}
	}
	pair(QueryHard, QuerySoft, PropertyHard)
	pair(QueryGame, QueryEditorOnly, PropertyGame)
	pair(QueryBuild, QueryNotBuild, PropertyBuild)
	pair(QueryDirect, QueryIndirect, PropertyDirect)
	return q
}

// Matches reports whether an edge with props satisfies q.
func (q DependencyQuery) Matches(props Property) bool {
	return props&q.Required == q.Required && props&q.Excluded == 0
}

// ParseQueryFlags parses a comma list such as "hard,game".
func ParseQueryFlags(s string) (QueryFlags, bool) {
	var flags QueryFlags
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "":
		case "hard":
			flags |= QueryHard
		case "soft":
			flags |= QuerySoft
		case "game":
			flags |= QueryGame
		case "editoronly":
			flags |= QueryEditorOnly
		case "build":
			flags |= QueryBuild
		case "notbuild":
			flags |= QueryNotBuild
		case "direct":
			flags |= QueryDirect
		case "indirect":
			flags |= QueryIndirect
		default:
			return 0, false
		}
	}
	return flags, true
}

// ParseCategory parses "package", "manage", "searchablename" or "all".
func ParseCategory(s string) (Category, bool) {
	var c Category
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "package", "packages":
			c |= CategoryPackage
		case "manage":
			c |= CategoryManage
		case "searchablename", "searchable":
			c |= CategorySearchableName
		case "all", "":
			c |= CategoryAll
		default:
			return CategoryNone, false
		}
	}
	return c, true
}

// Dependency is one edge as seen from its source or target.
type Dependency struct {
	Identifier asset.AssetIdentifier
	Category   Category
	Properties Property
}
