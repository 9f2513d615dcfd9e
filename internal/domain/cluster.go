package domain

// Cluster is one connected component of the handshake graph as seen by a caller.
type Cluster struct {
	RepresentativeID string  `json:"representative_id"`
	MemberCount      int     `json:"member_count"`
	AggregateValue   float64 `json:"aggregate_value"`
	IsCallerMember   bool    `json:"is_caller_member"`
}
