package game

import (
	"testing"
	"time"

	"livequiz-service/internal/domain"
)

func TestRankBreaksTiesByJoinTime(t *testing.T) {
	base := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	participants := []domain.Participant{
		{ID: "late", Name: "Late", TotalScore: 17, JoinedAt: base.Add(2 * time.Second)},
		{ID: "top", Name: "Top", TotalScore: 20, JoinedAt: base.Add(5 * time.Second)},
		{ID: "early", Name: "Early", TotalScore: 17, JoinedAt: base},
	}

	ranks := Rank(participants, 0)
	want := []string{"top", "early", "late"}
	for i, id := range want {
		if ranks[i].ID != id || ranks[i].Rank != i+1 {
			t.Fatalf("position %d: expected %s, got %+v", i, id, ranks[i])
		}
	}

	top := Rank(participants, 2)
	if len(top) != 2 || top[1].ID != "early" {
		t.Fatalf("expected limit to keep ordering, got %+v", top)
	}

	me := RankOf(participants, "late")
	if me == nil || me.Rank != 3 {
		t.Fatalf("expected late to rank 3, got %+v", me)
	}
	if RankOf(participants, "missing") != nil {
		t.Fatalf("expected nil for unknown participant")
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	participants := []domain.Participant{
		{ID: "a", TotalScore: 1},
		{ID: "b", TotalScore: 5},
	}
	_ = Rank(participants, 0)
	if participants[0].ID != "a" {
		t.Fatalf("expected input order preserved")
	}
}
