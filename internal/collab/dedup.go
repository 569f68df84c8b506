package collab

// Claim is one server's assertion that it collaborates with the listed
// servers on a project. Server IDs are the legacy (source-side) string
// identifiers; dedup runs before any new IDs exist.
type Claim struct {
	ProjectID string
	Servers   []string
}

// ServerClaims pairs a server with everything it claims. Order matters:
// Deduplicate walks servers in input order and the first eligible server
// becomes the canonical owner of a project. The legacy migration feeds
// servers in collection iteration order, which makes the tie-break
// arbitrary but stable.
type ServerClaims struct {
	ServerID string
	Claims   []Claim
}

// Deduplicate reduces overlapping collaboration claims to a canonical
// assignment of each project to exactly one owning server.
//
// A collaboration edge is only trusted when every party independently
// asserts it, so the retained server set per project is the intersection
// of all claimed-collaborator lists, never the union. A single server's
// stale or fabricated claim therefore cannot manufacture an edge.
func Deduplicate(data []ServerClaims) []ServerClaims {
	// First pass: intersect claimed-collaborator sets per project.
	projectToServers := make(map[string]map[string]bool)
	for _, sc := range data {
		for _, claim := range sc.Claims {
			claimed := make(map[string]bool, len(claim.Servers))
			for _, s := range claim.Servers {
				claimed[s] = true
			}
			existing, ok := projectToServers[claim.ProjectID]
			if !ok {
				projectToServers[claim.ProjectID] = claimed
				continue
			}
			for s := range existing {
				if !claimed[s] {
					delete(existing, s)
				}
			}
		}
	}

	// Second pass: keep each project under the first server (input order)
	// that has not lost it to an earlier server and is itself a member of
	// the intersection.
	seen := make(map[string]bool)
	var out []ServerClaims
	for _, sc := range data {
		var kept []Claim
		for _, claim := range sc.Claims {
			if seen[claim.ProjectID] {
				continue
			}
			if !projectToServers[claim.ProjectID][sc.ServerID] {
				continue
			}
			seen[claim.ProjectID] = true
			kept = append(kept, claim)
		}
		if len(kept) > 0 {
			out = append(out, ServerClaims{ServerID: sc.ServerID, Claims: kept})
		}
	}
	return out
}

// MutualServers returns the intersection of claimed-collaborator sets for
// one project across all claims, the set a kept claim's membership is
// validated against.
func MutualServers(data []ServerClaims, projectID string) map[string]bool {
	var result map[string]bool
	for _, sc := range data {
		for _, claim := range sc.Claims {
			if claim.ProjectID != projectID {
				continue
			}
			claimed := make(map[string]bool, len(claim.Servers))
			for _, s := range claim.Servers {
				claimed[s] = true
			}
			if result == nil {
				result = claimed
				continue
			}
			for s := range result {
				if !claimed[s] {
					delete(result, s)
				}
			}
		}
	}
	return result
}
