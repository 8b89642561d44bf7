package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Milestone is one of the four onboarding milestones of a snapshot.
type Milestone struct {
	Done    bool `bson:"done" json:"done"`
	Percent int  `bson:"percent" json:"percent"`
}

// ProfileCompletionSnapshot is written once at registration and never updated.
type ProfileCompletionSnapshot struct {
	ID                 bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email              string        `bson:"email" json:"email"`
	CompanyCreation    Milestone     `bson:"companyCreation" json:"companyCreation"`
	UserCreation       Milestone     `bson:"userCreation" json:"userCreation"`
	EmployeeCreation   Milestone     `bson:"employeeCreation" json:"employeeCreation"`
	AssignmentCreation Milestone     `bson:"assignmentCreation" json:"assignmentCreation"`
	CreatedAt          time.Time     `bson:"createdAt" json:"createdAt"`
}

// Total sums the percentage of every completed milestone.
func (s ProfileCompletionSnapshot) Total() int {
	total := 0
	for _, m := range []Milestone{s.CompanyCreation, s.UserCreation, s.EmployeeCreation, s.AssignmentCreation} {
		if m.Done {
			total += m.Percent
		}
	}
	return total
}
