package voting

import "quorum/contexts/decision-governance/decision-engine/domain/entities"

// PointsForRank returns the point value for a 1-indexed rank in a poll with
// targetCount targets. An explicit override table wins for ranks it names;
// every other rank falls back to the descending schedule targetCount-rank+1,
// floored at zero. The schedule scales with the pool size, so organizers need
// no manual table, and is strictly decreasing over ranks 1..targetCount.
func PointsForRank(poll entities.Poll, targetCount int, rank int) int {
	if override, ok := poll.RankPointOverrides[rank]; ok {
		if override < 0 {
			return 0
		}
		return override
	}
	points := targetCount - rank + 1
	if points < 0 {
		return 0
	}
	return points
}

// AllocatePoints fills in the point value of each ranking on a normalized
// ranked ballot.
func AllocatePoints(poll entities.Poll, targetCount int, rankings []entities.Ranking) []entities.Ranking {
	items := make([]entities.Ranking, 0, len(rankings))
	for _, ranking := range rankings {
		ranking.Points = PointsForRank(poll, targetCount, ranking.Rank)
		items = append(items, ranking)
	}
	return items
}
