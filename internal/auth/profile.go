package auth

// Profile is the normalized identity returned by an OAuth provider.
// It contains facts only, no decisions; persistence is the resolver's job.
type Profile struct {
	ID       string // provider-scoped unique user identifier
	Name     string // display name
	Email    string // email asserted by the provider
	Picture  string // avatar URL, may be empty
	Provider string // e.g. "google", "github", "discord"
}
