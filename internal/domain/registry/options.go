package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

// WildcardClass keys tag filters that apply to every class; as a tag name it
// matches every tag.
const WildcardClass = "*"

// SerializationOptions controls snapshot content, pruning and tag filtering.
type SerializationOptions struct {
	SerializeDependencies               bool `toml:"serialize_dependencies" yaml:"serialize_dependencies" json:"serialize_dependencies"`
	SerializeSearchableNameDependencies bool `toml:"serialize_searchable_name_dependencies" yaml:"serialize_searchable_name_dependencies" json:"serialize_searchable_name_dependencies"`
	SerializeManageDependencies         bool `toml:"serialize_manage_dependencies" yaml:"serialize_manage_dependencies" json:"serialize_manage_dependencies"`
	SerializePackageData                bool `toml:"serialize_package_data" yaml:"serialize_package_data" json:"serialize_package_data"`

	FilterAssetDataWithNoTags    bool `toml:"filter_asset_data_with_no_tags" yaml:"filter_asset_data_with_no_tags" json:"filter_asset_data_with_no_tags"`
	FilterDependenciesWithNoTags bool `toml:"filter_dependencies_with_no_tags" yaml:"filter_dependencies_with_no_tags" json:"filter_dependencies_with_no_tags"`
	FilterSearchableNames        bool `toml:"filter_searchable_names" yaml:"filter_searchable_names" json:"filter_searchable_names"`

	// UseTagAllowList keeps only the listed tags instead of dropping them.
	UseTagAllowList bool `toml:"use_tag_allow_list" yaml:"use_tag_allow_list" json:"use_tag_allow_list"`
	// TagFiltersByClass maps a class name, or "*", to tag names.
	TagFiltersByClass map[string][]string `toml:"tag_filters_by_class" yaml:"tag_filters_by_class" json:"tag_filters_by_class"`

	compiled map[names.Name]names.Set
}

// DefaultSerializationOptions serializes everything and filters nothing.
func DefaultSerializationOptions() SerializationOptions {
	return SerializationOptions{
		SerializeDependencies:               true,
		SerializeSearchableNameDependencies: true,
		SerializeManageDependencies:         true,
		SerializePackageData:                true,
	}
}

// LoadSerializationOptions reads options from a .toml, .yaml, .yml or .json
// file. Unset fields keep their defaults.
func LoadSerializationOptions(path string) (SerializationOptions, error) {
	opts := DefaultSerializationOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read serialization options: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &opts)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &opts)
	case ".json":
		err = sonic.Unmarshal(data, &opts)
	default:
		return opts, fmt.Errorf("unsupported serialization options format: %s", path)
	}
	if err != nil {
		return opts, fmt.Errorf("failed to parse serialization options %s: %w", path, err)
	}
	return opts, nil
}

// tagFilters returns the compiled filter list for class.
func (o *SerializationOptions) tagFilters(class names.Name) names.Set {
	if o.compiled == nil && len(o.TagFiltersByClass) > 0 {
		o.compiled = make(map[names.Name]names.Set, len(o.TagFiltersByClass))
		for c, tags := range o.TagFiltersByClass {
			o.compiled[names.Intern(c)] = names.NewSet(tags...)
		}
	}
	return o.compiled[class]
}

// FilterTags applies the class tag filters to tags.
func (o *SerializationOptions) FilterTags(class names.Name, tags asset.TagMap) asset.TagMap {
	if len(o.TagFiltersByClass) == 0 {
		if o.UseTagAllowList {
			return asset.TagMap{}
		}
		return tags
	}
	wildcard := names.Intern(WildcardClass)
	all := o.tagFilters(wildcard)
	specific := o.tagFilters(class)
	listed := func(set names.Set, key names.Name) bool {
		return set != nil && (set.Contains(key) || set.Contains(wildcard))
	}
	return tags.Filter(func(p asset.TagPair) bool {
		in := listed(all, p.Key) || listed(specific, p.Key)
		return in == o.UseTagAllowList
	})
}
