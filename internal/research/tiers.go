// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Tier is an ordered domain allow-list searched as one web query.
type Tier struct {
	Rank    int      `yaml:"rank"`
	Name    string   `yaml:"name"`
	Domains []string `yaml:"domains"`
	Limit   int      `yaml:"limit"`
}

// DefaultTiers lists official, academic, then community sources.
var DefaultTiers = []Tier{
	{
		Rank: 1, Name: "official", Limit: 5,
		Domains: []string{"python.org", "docs.python.org", "peps.python.org", "pypi.org"},
	},
	{
		Rank: 2, Name: "academic", Limit: 3,
		Domains: []string{"arxiv.org", "ieee.org", "acm.org", "scholar.google.com", "dl.acm.org"},
	},
	{
		Rank: 3, Name: "community", Limit: 5,
		Domains: []string{"realpython.com", "stackoverflow.com", "github.com", "python.plainenglish.io", "towardsdatascience.com"},
	},
}

type tierFile struct {
	Tiers []Tier `yaml:"tiers"`
}

// LoadTiers reads a tier table from a YAML file of the form
// `tiers: [{rank, name, domains, limit}]`.
func LoadTiers(path string) ([]Tier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tiers file: %w", err)
	}
	var tf tierFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing tiers file %s: %w", path, err)
	}
	if len(tf.Tiers) == 0 {
		return nil, fmt.Errorf("tiers file %s defines no tiers", path)
	}
	for i, t := range tf.Tiers {
		if t.Rank < 1 || t.Rank > 3 {
			return nil, fmt.Errorf("tier %d (%s): rank must be 1, 2, or 3", i, t.Name)
		}
		if len(t.Domains) == 0 {
			return nil, fmt.Errorf("tier %d (%s): no domains", i, t.Name)
		}
	}
	return tf.Tiers, nil
}

// TierQuery ANDs the question with an OR-list of site filters.
func TierQuery(question string, domains []string) string {
	if len(domains) == 0 {
		return question
	}
	sites := make([]string, len(domains))
	for i, d := range domains {
		sites[i] = "site:" + d
	}
	return fmt.Sprintf("%s (%s)", question, strings.Join(sites, " OR "))
}

// tieredSearch runs every tier within the profile concurrently, then merges
// in rank order (file order breaks ties), removes duplicate URLs (first occurrence wins), truncates
// to the profile's web limit, and tags each result with its tier. A failing
// tier is logged and contributes nothing.
func tieredSearch(ctx context.Context, searcher WebSearcher, tiers []Tier, question string, profile DepthProfile, log *zap.Logger) []types.WebResult {
	var active []Tier
	for _, t := range tiers {
		if t.Rank <= profile.MaxTier {
			active = append(active, t)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Rank < active[j].Rank })

	perTier := make([][]types.WebResult, len(active))
	g, gCtx := errgroup.WithContext(ctx)
	for i, tier := range active {
		g.Go(func() error {
			limit := tier.Limit
			if limit <= 0 {
				limit = profile.WebLimit
			}
			results, err := searcher.Search(gCtx, TierQuery(question, tier.Domains), tier.Domains, limit)
			if err != nil {
				log.Warn("research: tier search failed",
					zap.String("tier", tier.Name),
					zap.Int("rank", tier.Rank),
					zap.Error(err),
				)
				return nil
			}
			for j := range results {
				results[j].PriorityTier = types.PriorityTier(tier.Rank)
				results[j].TierRank = tier.Rank
			}
			perTier[i] = results
			return nil
		})
	}
	_ = g.Wait()

	var all []types.WebResult
	for _, rs := range perTier {
		all = append(all, rs...)
	}

	merged := dedupeByURL(all)
	if profile.WebLimit > 0 && len(merged) > profile.WebLimit {
		merged = merged[:profile.WebLimit]
	}
	return merged
}

// dedupeByURL keeps the first result for each normalized URL.
func dedupeByURL(results []types.WebResult) []types.WebResult {
	seen := make(map[string]bool, len(results))
	out := make([]types.WebResult, 0, len(results))
	for _, r := range results {
		key := normalizeURL(r.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// normalizeURL lowercases scheme and host, drops the fragment and a
// trailing slash so trivially different spellings of a page compare equal.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}
