// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"fmt"
	"strings"
)

// Depth names a research depth profile.
type Depth string

const (
	DepthQuick    Depth = "quick"
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

// DepthProfile bounds how much a research pass fetches.
type DepthProfile struct {
	Name     Depth
	RAGLimit int
	WebLimit int

	// MaxTier is the lowest-priority tier the profile searches (quick
	// searches tier 1 only, deep searches all three).
	MaxTier int
}

// DepthProfiles is the profile table.
var DepthProfiles = map[Depth]DepthProfile{
	DepthQuick:    {Name: DepthQuick, RAGLimit: 10, WebLimit: 5, MaxTier: 1},
	DepthStandard: {Name: DepthStandard, RAGLimit: 15, WebLimit: 5, MaxTier: 2},
	DepthDeep:     {Name: DepthDeep, RAGLimit: 20, WebLimit: 10, MaxTier: 3},
}

// ParseDepth returns the named profile. An empty name selects standard.
func ParseDepth(name string) (DepthProfile, error) {
	if name == "" {
		return DepthProfiles[DepthStandard], nil
	}
	p, ok := DepthProfiles[Depth(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return DepthProfile{}, fmt.Errorf("unknown research depth %q: use quick, standard, or deep", name)
	}
	return p, nil
}
