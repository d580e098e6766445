package storage

import (
	"context"
	"fmt"

	"github.com/wastetrace/wastetrace/internal/model"
)

// Leaderboard returns the top generators by lifetime credits earned.
// Creation time breaks ties so ranks are stable across reads. Generators
// that have never earned a credit are excluded.
func (db *DB) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.pool.Query(ctx,
		`SELECT name, total_earned, total_waste_sent, co2_saved, segregation_scores
		 FROM users
		 WHERE role = $1 AND total_earned > 0
		 ORDER BY total_earned DESC, created_at ASC
		 LIMIT $2`,
		string(model.RoleGenerator), limit)
	if err != nil {
		return nil, fmt.Errorf("storage: leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		var scores []float64
		if err := rows.Scan(&e.Name, &e.TotalEarned, &e.TotalWasteSent, &e.CO2Saved, &scores); err != nil {
			return nil, fmt.Errorf("storage: scan leaderboard row: %w", err)
		}
		e.Rank = len(entries) + 1
		e.SegregationGrade = model.GradeForScores(scores)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
