package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProjectRole names one of the two membership relations a user can hold on a project.
type ProjectRole string

const (
	RoleOwner       ProjectRole = "owner"
	RoleContributor ProjectRole = "contributor"
)

// JoinTable returns the many2many table backing the role.
func (r ProjectRole) JoinTable() string {
	if r == RoleOwner {
		return "project_owners"
	}
	return "project_contributors"
}

// Project is the central entity: a generated application with optional tool
// choices and external repository references.
type Project struct {
	BaseModel

	Name        string         `gorm:"not null;index" json:"name"`
	Description string         `json:"description"`
	Version     string         `gorm:"not null;default:'0.1.0'" json:"version"`
	License     string         `json:"license"`
	Authors     datatypes.JSON `json:"authors,omitempty"`

	CIToolID            *string `gorm:"size:64" json:"ci_tool_id,omitempty"`
	DeploymentToolID    *string `gorm:"size:64" json:"deployment_tool_id,omitempty"`
	ContainerToolID     *string `gorm:"size:64" json:"container_tool_id,omitempty"`
	WebFrameworkToolID  *string `gorm:"size:64" json:"web_framework_tool_id,omitempty"`
	ORMToolID           *string `gorm:"column:orm_tool_id;size:64" json:"orm_tool_id,omitempty"`
	TestToolID          *string `gorm:"size:64" json:"test_tool_id,omitempty"`
	SourceControlToolID *string `gorm:"size:64" json:"source_control_tool_id,omitempty"`

	GitHubRepoID   *int64 `gorm:"column:github_repo_id" json:"github_repo_id,omitempty"`
	GitHubRepoName string `gorm:"column:github_repo_name" json:"github_repo_name,omitempty"`
	TravisRepoID   *int64 `json:"travis_repo_id,omitempty"`
	HerokuAppID    string `json:"heroku_app_id,omitempty"`

	Owners       []User `gorm:"many2many:project_owners;" json:"owners,omitempty"`
	Contributors []User `gorm:"many2many:project_contributors;" json:"contributors,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ToolIDs returns every non-empty tool reference keyed by its JSON field name.
func (p *Project) ToolIDs() map[string]string {
	refs := map[string]*string{
		"ci_tool_id":             p.CIToolID,
		"deployment_tool_id":     p.DeploymentToolID,
		"container_tool_id":      p.ContainerToolID,
		"web_framework_tool_id":  p.WebFrameworkToolID,
		"orm_tool_id":            p.ORMToolID,
		"test_tool_id":           p.TestToolID,
		"source_control_tool_id": p.SourceControlToolID,
	}
	out := make(map[string]string, len(refs))
	for field, ref := range refs {
		if ref != nil && *ref != "" {
			out[field] = *ref
		}
	}
	return out
}
