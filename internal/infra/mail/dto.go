package mail

// OnboardingEmailData feeds templates/onboarding.html. An empty
// TemporaryPassword renders the "tenant ready" variant.
type OnboardingEmailData struct {
	ContactName       string
	InstitutName      string
	LoginEmail        string
	TemporaryPassword string
	LoginURL          string
	Plan              string
	SupportEmail      string
}
