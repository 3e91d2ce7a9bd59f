package models

// Target selects who receives a distribution. An empty ChatIDs slice with All set
// means every student registered at call time.
type Target struct {
	All     bool
	ChatIDs []int64
}

func AllStudents() Target {
	return Target{All: true}
}

func Students(chatIDs ...int64) Target {
	return Target{ChatIDs: chatIDs}
}

// DeliveryFailure records one target whose announcement or artifact could not be sent.
type DeliveryFailure struct {
	ChatID int64 `json:"chat_id"`
	Err    error `json:"-"`
}

type DistributionResult struct {
	TaskID    int64             `json:"task_id"`
	Delivered int               `json:"delivered"`
	Failed    int               `json:"failed"`
	Failures  []DeliveryFailure `json:"failures,omitempty"`
}

func (r *DistributionResult) FailedChatIDs() []int64 {
	ids := make([]int64, 0, len(r.Failures))
	for _, f := range r.Failures {
		ids = append(ids, f.ChatID)
	}
	return ids
}
