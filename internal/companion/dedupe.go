package companion

import (
	"daybook/internal/core/session"

	"github.com/sirupsen/logrus"
)

// dedupeGoals keeps the first goal for every id and logs one warning per
// dropped duplicate.
func dedupeGoals(goals []session.Goal, logger *logrus.Entry) []session.Goal {
	seen := make(map[string]struct{}, len(goals))
	unique := make([]session.Goal, 0, len(goals))
	for _, goal := range goals {
		if _, dup := seen[goal.ID]; dup {
			logger.WithFields(logrus.Fields{
				"goal": goal.ID,
				"text": goal.Text,
			}).Warn("duplicate goal id in snapshot, keeping first occurrence")
			continue
		}
		seen[goal.ID] = struct{}{}
		unique = append(unique, goal)
	}
	return unique
}
