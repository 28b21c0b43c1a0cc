package service

import (
	"fmt"
	"strings"
)

// Reason copy for the heuristic paths. User-visible.
const (
	reasonEmptyProfiles    = "complete your profile for better matches"
	reasonBothProfiles     = "both of you have completed profiles"
	reasonIncompletePair   = "new user or incomplete profile"
	forwardRoleWeight      = 0.5
	reverseRoleWeight      = 0.3
	bothProfilesBaseline   = 0.2
	incompleteProfileScore = 0.1
)

// roleKeywords is the vocabulary for the keyword-overlap fallback. The list and the
// weights above are a tunable policy table, not an algorithmic contract; any
// equivalent table works as long as scores stay in [0,1] and reasons are non-empty.
var roleKeywords = []string{
	"full stack",
	"front end",
	"frontend",
	"back end",
	"backend",
	"developer",
	"engineer",
	"designer",
	"product manager",
	"data scientist",
	"devops",
	"mobile",
	"founder",
	"cofounder",
	"mentor",
}

// HeuristicScorer scores a viewer/candidate pair on role-keyword overlap between one
// side's self-description and the other side's "looking for" text. It exists so every
// candidate gets a usable score and reason when embeddings are unavailable; it is
// intentionally simple and explainable, not a rival to the embedding path.
type HeuristicScorer struct{}

// Score always returns a score in [0,1] and at least one reason.
func (HeuristicScorer) Score(viewerBio, viewerLooking, candidateBio, candidateLooking string) PairScore {
	viewerBio = normalizeText(viewerBio)
	viewerLooking = normalizeText(viewerLooking)
	candidateBio = normalizeText(candidateBio)
	candidateLooking = normalizeText(candidateLooking)

	if viewerBio == "" && viewerLooking == "" && candidateBio == "" && candidateLooking == "" {
		return PairScore{Score: incompleteProfileScore, Reasons: []string{reasonEmptyProfiles}}
	}

	var (
		score   float64
		reasons []string
	)

	if role := firstCommonRole(candidateBio, viewerLooking); role != "" {
		score += forwardRoleWeight

		reasons = append(reasons, fmt.Sprintf("they are a %s, which matches what you're looking for", role))
	}

	if role := firstCommonRole(viewerBio, candidateLooking); role != "" {
		score += reverseRoleWeight

		reasons = append(reasons, fmt.Sprintf("you are a %s, which matches what they're looking for", role))
	}

	if score > 1 {
		score = 1
	}

	if len(reasons) > 0 {
		return PairScore{Score: score, Reasons: reasons}
	}

	viewerComplete := viewerBio != "" || viewerLooking != ""
	candidateComplete := candidateBio != "" || candidateLooking != ""

	if viewerComplete && candidateComplete {
		return PairScore{Score: bothProfilesBaseline, Reasons: []string{reasonBothProfiles}}
	}

	return PairScore{Score: incompleteProfileScore, Reasons: []string{reasonIncompletePair}}
}

// firstCommonRole returns the first role keyword present in both texts, or "".
func firstCommonRole(selfDescription, seeking string) string {
	if selfDescription == "" || seeking == "" {
		return ""
	}

	for _, role := range roleKeywords {
		if strings.Contains(selfDescription, role) && strings.Contains(seeking, role) {
			return role
		}
	}

	return ""
}

// normalizeText lower-cases and collapses whitespace runs to single spaces.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
