//nolint:revive // types is a standard Go package name pattern
package types

// MatchScore is the ranking output for one content item.
// Every sub-score is in [0,1]; TotalScore is the weighted sum of the four sub-scores.
type MatchScore struct {
	ItemID          string  `json:"item_id"`
	SemanticScore   float64 `json:"semantic_score"`
	TagOverlapScore float64 `json:"tag_overlap_score"`
	KeywordScore    float64 `json:"keyword_score"`
	RecencyScore    float64 `json:"recency_score"`
	TotalScore      float64 `json:"total_score"`
	Explanation     string  `json:"explanation"`
}
