package facebook

import "github.com/goliatone/go-lobby/social"

type graphUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// Facebook only returns confirmed emails, it has no verified flag.
func mapProfile(me *graphUser) *social.SocialProfile {
	if me == nil {
		return nil
	}

	return &social.SocialProfile{
		ProviderUserID: me.ID,
		Provider:       "facebook",
		Email:          me.Email,
		EmailVerified:  me.Email != "",
		Name:           me.Name,
		FirstName:      me.FirstName,
		LastName:       me.LastName,
		AvatarURL:      me.Picture.Data.URL,
		Raw: map[string]any{
			"id": me.ID,
		},
	}
}
