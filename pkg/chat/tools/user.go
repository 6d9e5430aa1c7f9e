package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// CurrentUser returns the delegated user's directory profile, fetched with
// their own credential.
type CurrentUser struct {
	provider domain.Provider
	user     domain.UserIdentity
}

func NewCurrentUser(provider domain.Provider, user domain.UserIdentity) *CurrentUser {
	return &CurrentUser{provider: provider, user: user}
}

func (t *CurrentUser) Definition() domain.ToolDefinition {
	return functionDef("get_current_user",
		"Get the profile of the user asking the question: name, job title, department, company, location, and manager.",
		map[string]interface{}{}, nil)
}

func (t *CurrentUser) Execute(ctx context.Context, _ map[string]interface{}) (string, error) {
	profile, err := t.provider.GetUserProfile(ctx, t.user.Token)
	if err != nil {
		return "", fmt.Errorf("fetch user profile: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", profile.DisplayName)
	fmt.Fprintf(&sb, "Email: %s\n", profile.Mail)
	if profile.JobTitle != "" {
		fmt.Fprintf(&sb, "Job title: %s\n", profile.JobTitle)
	}
	if profile.Department != "" {
		fmt.Fprintf(&sb, "Department: %s\n", profile.Department)
	}
	if profile.CompanyName != "" {
		fmt.Fprintf(&sb, "Company: %s\n", profile.CompanyName)
	}
	if profile.OfficeLocation != "" {
		fmt.Fprintf(&sb, "Office: %s\n", profile.OfficeLocation)
	}
	if profile.City != "" || profile.Country != "" {
		fmt.Fprintf(&sb, "Location: %s\n", strings.TrimSpace(profile.City+" "+profile.Country))
	}
	if profile.Manager != "" {
		fmt.Fprintf(&sb, "Manager: %s\n", profile.Manager)
	}
	return strings.TrimSpace(sb.String()), nil
}
