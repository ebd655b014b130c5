package mapper

import (
	"sort"

	"brink_bridge/internal/types"
)

// ParseDescription builds the role -> Parameter map of one system.
// An empty menu or page list yields an empty map. Base roles that cannot be
// found are kept as nil entries so consumers can tell "missing" from "unknown".
func ParseDescription(desc types.GuiDescription) (map[string]*types.Parameter, error) {
	result := make(map[string]*types.Parameter)

	if len(desc.MenuItems) == 0 {
		return result, nil
	}
	pages := desc.MenuItems[0].Pages
	if len(pages) == 0 {
		return result, nil
	}

	all := FlattenDescriptors(pages)

	for _, br := range baseRoles {
		d := FindDescriptor(all, br.Key)
		if d == nil {
			result[br.Role] = nil
			continue
		}
		p, err := BuildParameter(*d)
		if err != nil {
			return nil, err
		}
		result[br.Role] = p
	}

	for _, d := range all {
		kind, ok := ClassifySensor(SensorRules, d.Name)
		if !ok {
			continue
		}
		p, err := BuildParameter(d)
		if err != nil {
			return nil, err
		}
		p.Kind = kind
		result[d.Name] = p
	}

	return result, nil
}

// FlattenDescriptors concatenates the descriptors of all pages in order.
func FlattenDescriptors(pages []types.Page) []types.ParameterDescriptor {
	n := 0
	for _, p := range pages {
		n += len(p.ParameterDescriptors)
	}
	all := make([]types.ParameterDescriptor, 0, n)
	for _, p := range pages {
		all = append(all, p.ParameterDescriptors...)
	}
	return all
}

// FindDescriptor returns the first descriptor whose uiId equals key, falling
// back to the first whose name equals key.
func FindDescriptor(all []types.ParameterDescriptor, key string) *types.ParameterDescriptor {
	for i := range all {
		if all[i].UIID == key {
			return &all[i]
		}
	}
	for i := range all {
		if all[i].Name == key {
			return &all[i]
		}
	}
	return nil
}

// SensorRoles returns the dynamically discovered roles of a parameter map.
func SensorRoles(params map[string]*types.Parameter) []string {
	roles := make([]string, 0, len(params))
	for role, p := range params {
		if p == nil || IsBaseRole(role) {
			continue
		}
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}
