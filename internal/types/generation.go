//nolint:revive // types is a standard Go package name pattern
package types

// GenerationResult is the synthesizer's output. It is not modified after it is produced.
type GenerationResult struct {
	Markup     string   `json:"markup"`
	Warnings   []string `json:"warnings"`
	Changes    []string `json:"changes"`
	TokensUsed int      `json:"tokens_used"`
}
