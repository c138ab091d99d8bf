package registry

import "fmt"

type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

type PermissionError struct {
	User       string
	Permission string
}

func (e *PermissionError) Error() string {
	user := e.User
	if user == "" {
		user = "anonymous"
	}
	return fmt.Sprintf("user %s lacks permission %s", user, e.Permission)
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type ConflictError struct {
	Slug string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("post with slug %q already exists", e.Slug)
}
