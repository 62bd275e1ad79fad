package game

import (
	"math"
	"slices"
	"strings"

	"github.com/scythe504/kartquiz-backend/internal"
)

// Distance returns the great-circle distance in kilometers between a and b
// using the haversine formula.
func Distance(a, b internal.Coordinate) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	return internal.EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// CalculatePoints converts a distance into [0, MaxPoints]. A non-positive
// maxDistance never scores.
func CalculatePoints(distance, maxDistance float64) int {
	if maxDistance <= 0 || math.IsNaN(distance) || distance > maxDistance {
		return 0
	}
	if distance < 0 {
		distance = 0
	}
	points := int(math.Round(internal.MaxPoints * (1 - distance/maxDistance)))
	return max(0, min(internal.MaxPoints, points))
}

// sortResults orders by cumulative score descending, ties by player id.
func sortResults(results []internal.PlayerResult) {
	slices.SortStableFunc(results, func(a, b internal.PlayerResult) int {
		if a.TotalScore != b.TotalScore {
			return b.TotalScore - a.TotalScore
		}
		return strings.Compare(a.PlayerID, b.PlayerID)
	})
}

// CalculateFinalResults compiles the leaderboard of every identity that ever
// scored in the room, including players who have since left.
func CalculateFinalResults(room *internal.Room) internal.FinalResults {
	entries := make([]internal.LeaderboardEntry, 0, len(room.Scores))
	for playerID, score := range room.Scores {
		entry := internal.LeaderboardEntry{
			PlayerID:  playerID,
			Score:     score,
			Connected: room.HasPlayer(playerID),
		}
		if p, ok := room.Participants[playerID]; ok {
			entry.PlayerName = p.Name
			entry.PlayerColor = p.Color
		}
		entries = append(entries, entry)
	}

	slices.SortFunc(entries, func(a, b internal.LeaderboardEntry) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return strings.Compare(a.PlayerID, b.PlayerID)
	})
	for idx := range entries {
		entries[idx].Position = idx + 1
	}

	results := internal.FinalResults{Leaderboard: entries}
	if len(entries) > 0 {
		winner := entries[0]
		results.Winner = &winner
	}
	return results
}
