package models

import "time"

// Gender is the binary gender recorded for congregation members.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// MemberRole captures the congregational standing of a member.
type MemberRole string

const (
	RoleElder               MemberRole = "ELDER"
	RoleMinisterialServant  MemberRole = "MINISTERIAL_SERVANT"
	RoleRegularPioneer      MemberRole = "REGULAR_PIONEER"
	RoleBaptizedPublisher   MemberRole = "BAPTIZED_PUBLISHER"
	RoleUnbaptizedPublisher MemberRole = "UNBAPTIZED_PUBLISHER"
	RoleNewStudent          MemberRole = "NEW_STUDENT"
)

// TalkQualifiedRoles lists the roles allowed to give talks.
var TalkQualifiedRoles = []MemberRole{RoleElder, RoleMinisterialServant, RoleBaptizedPublisher}

// IsTalkQualified reports whether the role belongs to the talk-qualified set.
func (r MemberRole) IsTalkQualified() bool {
	for _, role := range TalkQualifiedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Student represents a congregation member enrolled in the meeting school.
type Student struct {
	ID          string     `db:"id" json:"id"`
	FullName    string     `db:"full_name" json:"full_name"`
	Gender      Gender     `db:"gender" json:"gender"`
	Role        MemberRole `db:"role" json:"role"`
	Active      bool       `db:"active" json:"active"`
	Minor       bool       `db:"is_minor" json:"is_minor"`
	FamilyGroup *string    `db:"family_group" json:"family_group,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// IsMale is a convenience accessor used by eligibility checks.
func (s Student) IsMale() bool {
	return s.Gender == GenderMale
}

// Qualifications is the per-student capability set.
type Qualifications struct {
	StudentID        string `db:"student_id" json:"student_id"`
	ScriptureReading bool   `db:"can_read_scripture" json:"can_read_scripture"`
	Talk             bool   `db:"can_give_talk" json:"can_give_talk"`
	InitialCall      bool   `db:"can_do_initial_call" json:"can_do_initial_call"`
	ReturnVisit      bool   `db:"can_do_return_visit" json:"can_do_return_visit"`
	BibleStudy       bool   `db:"can_do_bible_study" json:"can_do_bible_study"`
	Demonstration    bool   `db:"can_demonstrate" json:"can_demonstrate"`
	Assistant        bool   `db:"can_be_assistant" json:"can_be_assistant"`
	Mentor           bool   `db:"can_mentor" json:"can_mentor"`
}

// DefaultQualifications derives a conservative capability set from role and gender.
func DefaultQualifications(student Student) Qualifications {
	male := student.IsMale()
	qualified := student.Role.IsTalkQualified()
	return Qualifications{
		StudentID:        student.ID,
		ScriptureReading: male,
		Talk:             male && qualified,
		InitialCall:      true,
		ReturnVisit:      true,
		BibleStudy:       male && qualified,
		Demonstration:    true,
		Assistant:        true,
		Mentor:           qualified,
	}
}

// FamilyLink is a persisted relationship between two members.
type FamilyLink struct {
	StudentID string `db:"student_id" json:"student_id"`
	RelatedID string `db:"related_id" json:"related_id"`
	Relation  string `db:"relation" json:"relation"`
}

// FamilyGraph is a symmetric adjacency lookup keyed by student id.
type FamilyGraph map[string][]string

// NewFamilyGraph builds a symmetric graph from directed links.
func NewFamilyGraph(links []FamilyLink) FamilyGraph {
	graph := make(FamilyGraph)
	seen := make(map[[2]string]bool, len(links)*2)
	add := func(from, to string) {
		key := [2]string{from, to}
		if from == "" || to == "" || from == to || seen[key] {
			return
		}
		seen[key] = true
		graph[from] = append(graph[from], to)
	}
	for _, link := range links {
		add(link.StudentID, link.RelatedID)
		add(link.RelatedID, link.StudentID)
	}
	return graph
}

// AreRelated reports whether a and b are family members in either direction.
func (g FamilyGraph) AreRelated(a, b string) bool {
	if g == nil || a == "" || b == "" {
		return false
	}
	for _, id := range g[a] {
		if id == b {
			return true
		}
	}
	for _, id := range g[b] {
		if id == a {
			return true
		}
	}
	return false
}

// IndexStudents keys students by id. Later duplicates win.
func IndexStudents(students []Student) map[string]Student {
	index := make(map[string]Student, len(students))
	for _, student := range students {
		index[student.ID] = student
	}
	return index
}
