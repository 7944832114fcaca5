package game

import (
	"sort"

	"livequiz-service/internal/domain"
)

// SortParticipants orders by score desc, then earliest join, then id. The last key only matters
// for identical join instants and keeps the order total.
func SortParticipants(participants []domain.Participant) []domain.Participant {
	sorted := make([]domain.Participant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID < b.ID
	})
	return sorted
}

// Rank returns the first limit rows of the leaderboard. A limit <= 0 returns everyone.
func Rank(participants []domain.Participant, limit int) []domain.RankEntry {
	sorted := SortParticipants(participants)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	entries := make([]domain.RankEntry, 0, len(sorted))
	for i, p := range sorted {
		entries = append(entries, entry(p, i+1))
	}
	return entries
}

// RankOf returns the leaderboard row of one participant, or nil if absent.
func RankOf(participants []domain.Participant, participantID string) *domain.RankEntry {
	if participantID == "" {
		return nil
	}
	for i, p := range SortParticipants(participants) {
		if p.ID == participantID {
			e := entry(p, i+1)
			return &e
		}
	}
	return nil
}

func entry(p domain.Participant, rank int) domain.RankEntry {
	joined := p.JoinedAt
	return domain.RankEntry{
		ID:       p.ID,
		Rank:     rank,
		Name:     p.Name,
		Score:    p.TotalScore,
		JoinCode: p.JoinCode,
		JoinedAt: &joined,
	}
}
