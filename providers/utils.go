package providers

// ChooseModel selects the model to use based on priority:
//  1. requested (the caller's ChatRequest.Model, if set)
//  2. configured (the provider's own config.Model, if set)
//  3. fallback (the provider's hardcoded default)
func ChooseModel(requested, configured, fallback string) string {
	if requested != "" {
		return requested
	}
	if configured != "" {
		return configured
	}
	return fallback
}
