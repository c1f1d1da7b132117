package models

// ToolCategory groups catalogue entries by the project slot they fill.
type ToolCategory string

const (
	ToolCategoryCI            ToolCategory = "ci"
	ToolCategoryDeployment    ToolCategory = "deployment"
	ToolCategoryContainer     ToolCategory = "container"
	ToolCategoryWebFramework  ToolCategory = "web_framework"
	ToolCategoryORM           ToolCategory = "orm"
	ToolCategoryTest          ToolCategory = "test"
	ToolCategorySourceControl ToolCategory = "source_control"
)

// Tool is a read-only catalogue entry identified by a stable slug.
type Tool struct {
	ID       string       `gorm:"primaryKey;size:64" json:"id"`
	Name     string       `gorm:"not null" json:"name"`
	Category ToolCategory `gorm:"size:32;not null;index" json:"category"`
	Website  string       `json:"website,omitempty"`
}
