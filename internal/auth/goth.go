package auth

import (
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/google"

	"rentflow/internal/config"
	"rentflow/internal/models"
)

// InitGothProviders registers the OAuth providers that have credentials
// configured and returns their names.
func InitGothProviders(cfg *config.Config) []string {
	var providers []goth.Provider
	if cfg.GoogleEnabled() {
		providers = append(providers, google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.OAuthCallbackURL,
			"email", "profile",
		))
	}
	goth.UseProviders(providers...)

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	return names
}

// UserFromGoth maps an OAuth identity onto a user row. New users sign up
// as applicants.
func UserFromGoth(gu goth.User) *models.User {
	first, last := gu.FirstName, gu.LastName
	if first == "" && last == "" {
		first = gu.Name
	}
	return &models.User{
		Provider:   gu.Provider,
		ProviderID: gu.UserID,
		Email:      gu.Email,
		FirstName:  first,
		LastName:   last,
		AvatarURL:  gu.AvatarURL,
		Role:       models.RoleApplicant,
	}
}
