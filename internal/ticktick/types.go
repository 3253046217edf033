package ticktick

// Project represents a TickTick project (task list)
type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	SortOrder  int64  `json:"sortOrder,omitempty"`
	Closed     bool   `json:"closed,omitempty"`
	GroupID    string `json:"groupId,omitempty"`
	ViewMode   string `json:"viewMode,omitempty"`
	Permission string `json:"permission,omitempty"`
	Kind       string `json:"kind,omitempty"`
}

// Task represents a TickTick task. Content, Desc and DueDate are nil when the
// API left them out and point to "" when it sent an empty string.
type Task struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"projectId"`
	Title         string          `json:"title"`
	Content       *string         `json:"content,omitempty"`
	Desc          *string         `json:"desc,omitempty"`
	IsAllDay      bool            `json:"isAllDay,omitempty"`
	StartDate     string          `json:"startDate,omitempty"`
	DueDate       *string         `json:"dueDate,omitempty"`
	TimeZone      string          `json:"timeZone,omitempty"`
	Priority      int             `json:"priority,omitempty"`
	Status        *int            `json:"status,omitempty"` // 0 = normal, 2 = completed
	CompletedTime string          `json:"completedTime,omitempty"`
	SortOrder     int64           `json:"sortOrder,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	Items         []ChecklistItem `json:"items,omitempty"`
}

// ChecklistItem is a subtask entry of a Task
type ChecklistItem struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Status        int    `json:"status"`
	CompletedTime string `json:"completedTime,omitempty"`
	SortOrder     int64  `json:"sortOrder,omitempty"`
}

// TaskInput is the body of a create request. Nil fields are omitted from the
// request entirely rather than sent as null.
type TaskInput struct {
	Title     string  `json:"title"`
	Content   *string `json:"content,omitempty"`
	ProjectID *string `json:"projectId,omitempty"`
}

// projectData is the payload of GET /project/{id}/data
type projectData struct {
	Project *Project `json:"project,omitempty"`
	Tasks   []Task   `json:"tasks"`
}
