package entity

import "sort"

// CCStarTag marks a Campus Cyberinfrastructure resource in topology.
const CCStarTag = "CC*"

// OSDFServiceTypes are the topology service names of data-federation
// caches and origins.
var OSDFServiceTypes = []string{
	"XRootD cache server",
	"XRootD origin server",
	"Pelican cache",
	"Pelican origin",
}

// ResourceGroup is a topology resource group and its member resources.
type ResourceGroup struct {
	Name      string     `json:"name"`
	Facility  string     `json:"facility"`
	Site      string     `json:"site"`
	Resources []Resource `json:"resources"`
}

// Resource is a single topology resource.
type Resource struct {
	Name     string   `json:"name"`
	FQDN     string   `json:"fqdn"`
	Tags     []string `json:"tags"`
	Services []string `json:"services"`
}

// HasTag reports whether the resource carries tag.
func (r Resource) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Tags returns the union of the tags of all member resources.
func (g ResourceGroup) Tags() map[string]struct{} {
	tags := map[string]struct{}{}
	for _, r := range g.Resources {
		for _, t := range r.Tags {
			tags[t] = struct{}{}
		}
	}
	return tags
}

// IsCCStar reports whether any member resource is tagged CC*.
func (g ResourceGroup) IsCCStar() bool {
	_, ok := g.Tags()[CCStarTag]
	return ok
}

// HasServiceType reports whether any member resource advertises one of the
// given service names.
func (g ResourceGroup) HasServiceType(types ...string) bool {
	for _, r := range g.Resources {
		for _, s := range r.Services {
			for _, t := range types {
				if s == t {
					return true
				}
			}
		}
	}
	return false
}

// SortedKeys returns the members of a string set in lexical order.
func SortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
