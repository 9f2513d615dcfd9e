package domain

type SkillKind string

const (
	SkillHas   SkillKind = "has"
	SkillNeeds SkillKind = "needs"
)

type SkillCategory struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	IsOnline bool   `json:"is_online" db:"is_online"`
	IsOther  bool   `json:"is_other" db:"is_other"`
}

type UserSkill struct {
	UserID     string    `json:"user_id" db:"user_id"`
	CategoryID int64     `json:"category_id" db:"category_id"`
	Kind       SkillKind `json:"kind" db:"kind"`
}

// SkillEdge means Giver has a category that Receiver needs. It is derived per
// query and never stored.
type SkillEdge struct {
	GiverID    string `json:"giver_id"`
	ReceiverID string `json:"receiver_id"`
	CategoryID int64  `json:"category_id"`
}
