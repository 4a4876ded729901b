// Package routing assigns each non-spam ticket to an agent: a geo filter
// narrows candidates to reachable offices, a skill filter (with a
// relaxation cascade) narrows further, and a lowest-load selection picks
// the final agent.
package routing

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/orbitdesk/ticketrouter/pkg/dynamap"
	"github.com/orbitdesk/ticketrouter/pkg/ledger"
	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// ErrNoEligibleAgents is returned when every relaxation step has been
// exhausted and the candidate set is still empty.
var ErrNoEligibleAgents = errors.New("routing: no eligible agents")

const (
	earthRadiusKM  = 6371.0
	minGeoRadiusKM = 50.0
	geoMultiplier  = 1.5
)

// Requirement is one skill-filter constraint, in relaxation order
// (language first, then position, then VIP).
type Requirement string

const (
	RequirementLanguage Requirement = "language"
	RequirementPosition Requirement = "position"
	RequirementVIP      Requirement = "VIP"
)

var relaxationOrder = []Requirement{RequirementLanguage, RequirementPosition, RequirementVIP}

// DifficultyWeights maps a detected ticket type to the load units an
// assignment consumes. Types absent from the map cost 1.
type DifficultyWeights map[models.TicketType]int

// Engine assigns tickets to agents given the current office/agent roster
// and a shared Ledger of committed load.
type Engine struct {
	offices    map[string]models.Office
	agents     []models.Agent
	ledger     *ledger.Ledger
	difficulty DifficultyWeights
}

// NewEngine builds an Engine over a fixed office/agent roster for one
// batch. Agents with Active=false never appear as candidates.
func NewEngine(offices []models.Office, agents []models.Agent, ld *ledger.Ledger, difficulty DifficultyWeights) *Engine {
	officeIndex := make(map[string]models.Office, len(offices))
	for _, o := range offices {
		officeIndex[o.ID] = o
	}
	active := make([]models.Agent, 0, len(agents))
	for _, a := range agents {
		if a.Active {
			active = append(active, a)
		}
	}
	return &Engine{offices: officeIndex, agents: active, ledger: ld, difficulty: difficulty}
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// officeDistance reports the distance in km from coords to office.
func officeDistance(coords models.Coordinates, office models.Office) float64 {
	return haversineKM(coords.Lat, coords.Lon, office.Latitude, office.Longitude)
}

// geoFilter returns agents whose home office is within the geo radius, and
// the distance (km) from the ticket to each surviving agent's office. If
// coords is nil, every agent passes with distance 0.
func (e *Engine) geoFilter(coords *models.Coordinates) ([]models.Agent, map[string]float64) {
	distances := make(map[string]float64)
	if coords == nil {
		for _, a := range e.agents {
			distances[a.ID] = 0
		}
		return e.agents, distances
	}

	officeDistances := make(map[string]float64, len(e.offices))
	closest := math.Inf(1)
	for id, office := range e.offices {
		d := officeDistance(*coords, office)
		officeDistances[id] = d
		if d < closest {
			closest = d
		}
	}
	if math.IsInf(closest, 1) {
		closest = 0
	}
	radius := math.Max(closest*geoMultiplier, minGeoRadiusKM)

	var survivors []models.Agent
	for _, a := range e.agents {
		d, ok := officeDistances[a.HomeOfficeID]
		if !ok || d > radius {
			continue
		}
		survivors = append(survivors, a)
		distances[a.ID] = d
	}
	return survivors, distances
}

// requiredFor derives the skill-filter requirement set from a ticket and
// its analysis.
func requiredFor(ticket models.Ticket, analysis models.Analysis) map[Requirement]bool {
	req := make(map[Requirement]bool)
	if ticket.Segment == models.SegmentVIP || ticket.Segment == models.SegmentPriority {
		req[RequirementVIP] = true
	}
	if analysis.DetectedType == models.TypeDataChange {
		req[RequirementPosition] = true
	}
	if analysis.Language == "KZ" || analysis.Language == "EN" {
		req[RequirementLanguage] = true
	}
	return req
}

func matchesRequirements(a models.Agent, req map[Requirement]bool, language string) bool {
	if req[RequirementVIP] && !a.HasSkill("VIP") {
		return false
	}
	if req[RequirementPosition] && a.Position != models.PositionChief {
		return false
	}
	if req[RequirementLanguage] && !a.HasSkill(language) {
		return false
	}
	return true
}

// skillFilter applies requirements, relaxing language, then position, then
// VIP (in that order) until the candidate set is non-empty or every
// requirement has been dropped.
func skillFilter(candidates []models.Agent, req map[Requirement]bool, language string) (survivors []models.Agent, relaxed []Requirement) {
	active := make(map[Requirement]bool, len(req))
	for k, v := range req {
		active[k] = v
	}

	filter := func() []models.Agent {
		var out []models.Agent
		for _, a := range candidates {
			if matchesRequirements(a, active, language) {
				out = append(out, a)
			}
		}
		return out
	}

	survivors = filter()
	for _, r := range relaxationOrder {
		if len(survivors) > 0 {
			break
		}
		if !active[r] {
			continue
		}
		delete(active, r)
		relaxed = append(relaxed, r)
		survivors = filter()
	}
	return survivors, relaxed
}

// Assign routes one ticket given its (possibly partial) analysis. Callers
// processing a batch are responsible for invoking Assign in descending
// priority order so the ledger reflects load commitments in that order.
func (e *Engine) Assign(ticket models.Ticket, analysis models.Analysis) (models.Assignment, error) {
	geoSurvivors, distances := e.geoFilter(analysis.Coordinates)
	if len(geoSurvivors) == 0 {
		return models.Assignment{}, fmt.Errorf("%w: ticket %s has no office within reach", ErrNoEligibleAgents, ticket.ID)
	}

	req := requiredFor(ticket, analysis)
	skillSurvivors, relaxed := skillFilter(geoSurvivors, req, analysis.Language)
	if len(skillSurvivors) == 0 {
		return models.Assignment{}, fmt.Errorf("%w: ticket %s", ErrNoEligibleAgents, ticket.ID)
	}

	chosen := e.selectLowestLoad(skillSurvivors)

	weight := 1
	if w, ok := e.difficulty[analysis.DetectedType]; ok {
		weight = w
	}
	before := e.ledger.Load(chosen.ID)
	after, err := e.ledger.Commit(chosen.ID, weight)
	if err != nil {
		return models.Assignment{}, fmt.Errorf("routing: commit load for agent %s: %w", chosen.ID, err)
	}

	office := e.offices[chosen.HomeOfficeID]
	explanation := buildExplanation(office, distances[chosen.ID], req, relaxed, chosen, before, after)

	return models.Assignment{
		TicketID:    ticket.ID,
		AgentID:     chosen.ID,
		OfficeID:    chosen.HomeOfficeID,
		Explanation: explanation,
		RoutingDetails: dynamap.Map{
			"distance_km":  dynamap.Number(distances[chosen.ID]),
			"relaxation":   requirementsToList(relaxed),
			"load_before":  dynamap.Number(float64(before)),
			"load_after":   dynamap.Number(float64(after)),
			"office_id":    dynamap.String(chosen.HomeOfficeID),
			"office_name":  dynamap.String(office.Name),
		},
	}, nil
}

func requirementsToList(reqs []Requirement) dynamap.Value {
	values := make([]dynamap.Value, len(reqs))
	for i, r := range reqs {
		values[i] = dynamap.String(string(r))
	}
	return dynamap.List(values...)
}

// selectLowestLoad picks the agent with the lowest committed load, breaking
// ties by higher skill factor then lexicographically-lower agent ID.
func (e *Engine) selectLowestLoad(candidates []models.Agent) models.Agent {
	snapshot := e.ledger.Snapshot()
	sorted := make([]models.Agent, len(candidates))
	copy(sorted, candidates)

	sort.Slice(sorted, func(i, j int) bool {
		li, lj := snapshot[sorted[i].ID], snapshot[sorted[j].ID]
		if li != lj {
			return li < lj
		}
		if sorted[i].SkillFactor != sorted[j].SkillFactor {
			return sorted[i].SkillFactor > sorted[j].SkillFactor
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[0]
}

func buildExplanation(office models.Office, distanceKM float64, required map[Requirement]bool, relaxed []Requirement, agent models.Agent, before, after int) string {
	enforced := make([]string, 0, len(required))
	for _, r := range relaxationOrder {
		if required[r] {
			stillEnforced := true
			for _, rel := range relaxed {
				if rel == r {
					stillEnforced = false
				}
			}
			if stillEnforced {
				enforced = append(enforced, string(r))
			}
		}
	}

	relaxedNames := make([]string, len(relaxed))
	for i, r := range relaxed {
		relaxedNames[i] = string(r)
	}

	return fmt.Sprintf(
		"assigned to %s at %s (%.1f km); enforced=%v relaxed=%v; load %d -> %d",
		agent.FullName, office.Name, distanceKM, enforced, relaxedNames, before, after,
	)
}
