package domain

// ExternalIdentity is an identity already verified by a federated provider.
type ExternalIdentity struct {
	Provider      string // e.g. "google"
	Subject       string // provider's stable user id
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
}
