package model

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// RunStatus is the overall state of a provisioning run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
)

// StepStatus is the outcome of one provisioning step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusSucceeded StepStatus = "succeeded"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// Provisioning step names, in execution order.
const (
	StepCreateCompany      = "create_company"
	StepCreateUser         = "create_user"
	StepCreateEmployee     = "create_employee"
	StepUpdateEmployee     = "update_employee"
	StepSetDefaultPassword = "set_default_password"
	StepSetUserPermission  = "set_user_permission"
)

// ProvisioningSteps is the fixed step sequence of a run.
var ProvisioningSteps = []string{
	StepCreateCompany,
	StepCreateUser,
	StepCreateEmployee,
	StepUpdateEmployee,
	StepSetDefaultPassword,
	StepSetUserPermission,
}

// StepRecord is the persisted state of one step.
type StepRecord struct {
	Name       string          `bson:"name" json:"name"`
	Status     StepStatus      `bson:"status" json:"status"`
	Attempts   int             `bson:"attempts" json:"attempts"`
	Error      string          `bson:"error,omitempty" json:"error,omitempty"`
	Result     json.RawMessage `bson:"result,omitempty" json:"result,omitempty"`
	StartedAt  *time.Time      `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	FinishedAt *time.Time      `bson:"finishedAt,omitempty" json:"finishedAt,omitempty"`
}

// ProvisioningInput is what the steps need to (re)run without the original request.
type ProvisioningInput struct {
	CompanyName     string `bson:"companyName" json:"companyName"`
	Abbr            string `bson:"abbr,omitempty" json:"abbr,omitempty"`
	Currency        string `bson:"currency,omitempty" json:"currency,omitempty"`
	Country         string `bson:"country,omitempty" json:"country,omitempty"`
	TaxID           string `bson:"taxId,omitempty" json:"taxId,omitempty"`
	Domain          string `bson:"domain,omitempty" json:"domain,omitempty"`
	EstablishedDate string `bson:"establishedDate,omitempty" json:"establishedDate,omitempty"`
	FirstName       string `bson:"firstName" json:"firstName"`
	LastName        string `bson:"lastName" json:"lastName"`
	Gender          string `bson:"gender" json:"gender"`
	DateOfBirth     string `bson:"dateOfBirth" json:"dateOfBirth"`
	DateOfJoining   string `bson:"dateOfJoining" json:"dateOfJoining"`
}

// ProvisioningRun records the saga that mirrors a tenant into the ERP.
type ProvisioningRun struct {
	ID         bson.ObjectID     `bson:"_id,omitempty" json:"id"`
	Email      string            `bson:"email" json:"email"`
	TenantID   bson.ObjectID     `bson:"tenantId" json:"tenantId"`
	Status     RunStatus         `bson:"status" json:"status"`
	Input      ProvisioningInput `bson:"input" json:"input"`
	EmployeeID string            `bson:"employeeId,omitempty" json:"employeeId,omitempty"`
	Steps      []StepRecord      `bson:"steps" json:"steps"`
	Resumes    int               `bson:"resumes" json:"resumes"`
	CreatedAt  time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// Step returns the record for name, or nil.
func (r *ProvisioningRun) Step(name string) *StepRecord {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}

// Settle derives the run status from its steps.
func (r *ProvisioningRun) Settle() {
	for _, s := range r.Steps {
		if s.Status != StepStatusSucceeded {
			r.Status = RunStatusPartial
			return
		}
	}
	r.Status = RunStatusCompleted
}
