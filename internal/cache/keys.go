package cache

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Key prefixes for the cached read views. Any operation that can change
// which tasks a user sees, or any task's status, must invalidate both the
// user's list keys (by pattern) and the status-count key.
const (
	userTasksPrefix       = "user-tasks"
	taskStatusCountPrefix = "task-status-counts"
)

// UserTasksKey builds the deterministic key for one (user, filter,
// pagination) list query. The filter and pagination are JSON-serialized so
// every distinct parameter combination gets its own entry under the
// user's prefix.
func UserTasksKey(userID uuid.UUID, filter, pagination any) string {
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		filterJSON = []byte("{}")
	}
	paginationJSON, err := json.Marshal(pagination)
	if err != nil {
		paginationJSON = []byte("{}")
	}
	return fmt.Sprintf("%s:%s:%s:%s", userTasksPrefix, userID, filterJSON, paginationJSON)
}

// UserTasksPattern matches every list-query variant cached for the user.
func UserTasksPattern(userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:*", userTasksPrefix, userID)
}

// StatusCountsKey builds the key for the user's per-status task counts.
func StatusCountsKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", taskStatusCountPrefix, userID)
}
