package service

import (
	"sort"

	"github.com/devconnect/matchcore/internal/models"
)

// The assembler applies the list-level policies after scoring: descending order with
// stable ties, dedup by entity id keeping the highest-scoring occurrence, source
// self-exclusion as a final guard, threshold filtering, and the optional length cap.

func sortRelatedPosts(results []models.RelatedPost) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func sortUserMatches(results []models.UserMatch) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// assembleRelatedPosts assumes results are already sorted descending, so keeping the
// first occurrence per id keeps the highest-scoring one.
func assembleRelatedPosts(results []models.RelatedPost, sourceID int64, minScore float64, limit int) []models.RelatedPost {
	seen := make(map[int64]bool, len(results))
	out := results[:0]

	for _, r := range results {
		if r.Post.ID == sourceID || seen[r.Post.ID] {
			continue
		}

		if r.Score < minScore {
			continue
		}

		seen[r.Post.ID] = true

		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out
}

// assembleUserMatches is the user-mode counterpart; no score threshold here, since
// user matching guarantees every candidate a usable score and reason.
func assembleUserMatches(results []models.UserMatch, viewerID int64, limit int) []models.UserMatch {
	seen := make(map[int64]bool, len(results))
	out := results[:0]

	for _, r := range results {
		if r.User.ID == viewerID || seen[r.User.ID] {
			continue
		}

		seen[r.User.ID] = true

		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out
}
