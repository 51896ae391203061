package model

import "time"

// Project is a co-edited document owned by a group.
type Project struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"groupId"`
	Name      string    `json:"name"`
	Content   string    `json:"content,omitempty"`
	Document  []byte    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Group owns projects and has a member list.
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CreateProjectRequest represents a request to create a new project.
type CreateProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateProjectRequest represents a request to rename a project.
type UpdateProjectRequest struct {
	Name string `json:"name" binding:"required"`
}
