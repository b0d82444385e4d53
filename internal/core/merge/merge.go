// Package merge combines records designated as duplicates into a single
// winner while preserving provenance.
package merge

import (
	"strings"

	"github.com/inkhaven/canonforge/internal/core/model"
)

// Entities folds losers into the winner. The winner's canonical fields
// (name, type, tier) are kept verbatim; provenance is unioned with exact
// (source_id, snippet) duplicates dropped; every loser's aliases plus its
// own name join the winner's alias set so the merge stays name-discoverable.
// A locked winner accepts only provenance and alias appends, never
// description or role overwrites.
func Entities(winner *model.RosterEntity, losers []*model.RosterEntity) {
	for _, loser := range losers {
		winner.AppendProvenance(loser.Provenance)

		addAlias(winner, loser.Name)
		for _, alias := range loser.Aliases {
			addAlias(winner, alias)
		}
		for _, tag := range loser.Tags {
			addTag(winner, tag)
		}

		if winner.Locked {
			continue
		}
		if winner.Description == "" {
			winner.Description = loser.Description
		}
		if winner.Role == "" {
			winner.Role = loser.Role
		}
	}
}

// Candidates folds loser queue entries into a winner candidate, reusing the
// intra-pass accumulation rules: evidence appends, descriptions concatenate
// unless redundant, the winner's classification stands.
func Candidates(winner *model.ResolvedCandidate, losers []*model.ResolvedCandidate) {
	for _, loser := range losers {
		c := loser.Candidate
		if c.Description != "" && !strings.Contains(strings.ToLower(winner.Candidate.Description), strings.ToLower(c.Description)) {
			if winner.Candidate.Description == "" {
				winner.Candidate.Description = c.Description
			} else {
				winner.Candidate.Description += " " + c.Description
			}
		}
		winner.Candidate.Evidence = append(winner.Candidate.Evidence, c.Evidence...)
		for _, tag := range loser.DraftTags {
			if !containsString(winner.DraftTags, tag) {
				winner.DraftTags = append(winner.DraftTags, tag)
			}
		}
	}
}

func addAlias(e *model.RosterEntity, alias string) {
	if alias == "" || alias == e.Name || e.HasAlias(alias) {
		return
	}
	e.Aliases = append(e.Aliases, alias)
}

func addTag(e *model.RosterEntity, tag string) {
	if tag == "" || containsString(e.Tags, tag) {
		return
	}
	e.Tags = append(e.Tags, tag)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
