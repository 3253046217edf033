package tasks_tools

import "github.com/teemow/tickmcp/internal/ticktick"

// statusOpen is reported for tasks without a status.
const statusOpen = "open"

type pingResult struct {
	Message string `json:"message"`
}

type taskSummary struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	ProjectID   *string `json:"project_id"`
	DueDate     *string `json:"due_date"`
	Description *string `json:"description"`
	Status      any     `json:"status"`
}

type listTasksResult struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Tasks   []taskSummary `json:"tasks"`
	Count   int           `json:"count"`
}

func (r listTasksResult) FailureMessage() string { return r.Error }

type createdTask struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Content   *string `json:"content"`
	ProjectID *string `json:"project_id"`
}

type createTaskResult struct {
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`
	Task    *createdTask `json:"task"`
}

func (r createTaskResult) FailureMessage() string { return r.Error }

type taskActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	TaskID  string `json:"task_id"`
}

func (r taskActionResult) FailureMessage() string { return r.Error }

type projectSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type listProjectsResult struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
	Projects []projectSummary `json:"projects"`
	Count    int              `json:"count"`
}

func (r listProjectsResult) FailureMessage() string { return r.Error }

// optional maps an unset project id to nil so it serializes as null.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toTaskSummary(t ticktick.Task) taskSummary {
	var status any = statusOpen
	if t.Status != nil {
		status = *t.Status
	}
	return taskSummary{
		ID:          t.ID,
		Title:       t.Title,
		ProjectID:   optional(t.ProjectID),
		DueDate:     t.DueDate,
		Description: t.Desc,
		Status:      status,
	}
}

func toCreatedTask(t *ticktick.Task) *createdTask {
	return &createdTask{
		ID:        t.ID,
		Title:     t.Title,
		Content:   t.Content,
		ProjectID: optional(t.ProjectID),
	}
}
