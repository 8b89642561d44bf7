package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"erpsaas/internal/apperr"
	"erpsaas/internal/config"
	"erpsaas/internal/model"
	"erpsaas/internal/pubsub"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type provisioningFixture struct {
	svc      *provisioningService
	users    *fakeUsers
	runs     *fakeRuns
	profiles *fakeProfiles
	erp      *fakeERP
	mail     *fakeMail
	events   *fakeEvents
}

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		EmployeeDefaultGender: "Male",
		EmployeeDefaultDOB:    "1990-05-10",
		LoginURL:              "https://erp.example/login",
		SupportEmail:          "support@example.com",
		OTPTTL:                15 * time.Minute,
		PublicBaseURL:         "https://api.example/",
	}
}

func newProvisioningFixture() *provisioningFixture {
	f := &provisioningFixture{
		users:    newFakeUsers(),
		runs:     newFakeRuns(),
		profiles: newFakeProfiles(),
		erp:      newFakeERP(),
		mail:     &fakeMail{},
		events:   &fakeEvents{},
	}
	svc := NewProvisioningService(f.users, f.runs, f.profiles, f.erp, f.mail, f.events, testConfig(), zerolog.Nop()).(*provisioningService)
	svc.now = func() time.Time { return fixedNow }
	passwords := []string{"Tmp#Pass0001ab", "Tmp#Pass0002ab"}
	svc.tempPassword = func() (string, error) {
		p := passwords[0]
		passwords = passwords[1:]
		return p, nil
	}
	f.svc = svc
	return f
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Email:       "  Owner@Acme.io ",
		Password:    "s3cret-pass",
		CompanyName: "Acme Trading Co",
		FirstName:   "Ada",
		LastName:    "Okafor",
		Country:     "Kenya",
		Currency:    "KES",
	}
}

func stepStatuses(steps []model.StepRecord) map[string]model.StepStatus {
	out := map[string]model.StepStatus{}
	for _, s := range steps {
		out[s.Name] = s.Status
	}
	return out
}

func TestRegisterValidation(t *testing.T) {
	f := newProvisioningFixture()
	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@b.co"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "password")
	assert.Contains(t, err.Error(), "companyName")
	assert.Empty(t, f.erp.calls)

	in := validRegistration()
	in.Email = "not-an-email"
	_, err = f.svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "invalid fields: email")
}

func TestRegisterRejectsPasswordBcryptCannotHash(t *testing.T) {
	f := newProvisioningFixture()
	in := validRegistration()
	// 40 runes, 80 bytes
	in.Password = strings.Repeat("é", 40)

	_, err := f.svc.Register(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "password must be at most 72 bytes")
	assert.Empty(t, f.users.byEmail)
	assert.Empty(t, f.erp.calls)

	in.Password = strings.Repeat("p", 72)
	_, err = f.svc.Register(context.Background(), in)
	assert.NoError(t, err)
}

func TestRegisterRejectsExistingEmail(t *testing.T) {
	f := newProvisioningFixture()
	f.users.byEmail["owner@acme.io"] = &model.TenantAccount{Email: "owner@acme.io"}

	_, err := f.svc.Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Empty(t, f.erp.calls)
	assert.Empty(t, f.runs.runs)
}

func TestRegisterCompletesAllSteps(t *testing.T) {
	f := newProvisioningFixture()
	res, err := f.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusCompleted, res.Status)
	require.Len(t, res.Steps, len(model.ProvisioningSteps))
	for i, st := range res.Steps {
		assert.Equal(t, model.ProvisioningSteps[i], st.Name)
		assert.Equal(t, model.StepStatusSucceeded, st.Status, st.Name)
		assert.Equal(t, 1, st.Attempts)
	}
	assert.JSONEq(t, `{"password_set":true}`, string(res.Steps[4].Result))

	acct := f.users.byEmail["owner@acme.io"]
	require.NotNil(t, acct)
	assert.Equal(t, model.RoleUser, acct.Role)
	assert.True(t, acct.IsActive)
	assert.True(t, checkSecret(acct.PasswordHash, "s3cret-pass"))
	assert.Equal(t, acct.ID.Hex(), res.TenantID)

	require.NotNil(t, res.Snapshot)
	assert.Equal(t, 100, res.Snapshot.Total())
	assert.Equal(t, model.Milestone{Done: true, Percent: 25}, res.Snapshot.AssignmentCreation)

	require.NotNil(t, res.Notification)
	assert.True(t, res.Notification.Sent)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "owner@acme.io", f.mail.sent[0].To)
	assert.Contains(t, f.mail.sent[0].HTML, "Tmp#Pass0001ab")
	assert.Equal(t, "Tmp#Pass0001ab", f.erp.updates["user:owner@acme.io"]["new_password"])

	assert.Equal(t, []string{pubsub.EventTenantRegistered}, f.events.types)

	run, err := f.svc.LatestRun(context.Background(), "OWNER@acme.io")
	require.NoError(t, err)
	assert.Equal(t, res.RunID, run.ID.Hex())
	assert.Equal(t, "ATC", run.Input.Abbr)
	assert.Equal(t, "2024-03-01", run.Input.DateOfJoining)
	assert.Equal(t, "Male", run.Input.Gender)
}

func TestRegisterRecordsPartialFailure(t *testing.T) {
	f := newProvisioningFixture()
	f.erp.fail["CreateEmployee"] = apperr.Upstream("erp", "create employee", errors.New(`{"exc_type":"ValidationError"}`))

	res, err := f.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusPartial, res.Status)
	st := stepStatuses(res.Steps)
	assert.Equal(t, model.StepStatusSucceeded, st[model.StepCreateCompany])
	assert.Equal(t, model.StepStatusSucceeded, st[model.StepCreateUser])
	assert.Equal(t, model.StepStatusFailed, st[model.StepCreateEmployee])
	assert.Equal(t, model.StepStatusSkipped, st[model.StepUpdateEmployee])
	assert.Equal(t, model.StepStatusSucceeded, st[model.StepSetDefaultPassword])
	assert.Equal(t, model.StepStatusSucceeded, st[model.StepSetUserPermission])

	assert.JSONEq(t, `{"exc_type":"ValidationError"}`, string(res.Steps[2].Result))
	assert.Equal(t, errNoEmployeeID, res.Steps[3].Error)
	assert.Zero(t, f.erp.count("UpdateEmployee"))

	require.NotNil(t, res.Snapshot)
	assert.Equal(t, 100, res.Snapshot.Total())
}

func TestRegisterReportsNotificationAndSnapshotFailures(t *testing.T) {
	f := newProvisioningFixture()
	f.mail.err = apperr.Upstream("mail", "send", errors.New("relay down"))
	f.profiles.createErr = apperr.Internal("create profile completion", errors.New("disk full"))
	f.events.err = errors.New("topic missing")

	res, err := f.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusCompleted, res.Status)
	require.NotNil(t, res.Notification)
	assert.False(t, res.Notification.Sent)
	assert.Contains(t, res.Notification.Error, "relay down")
	assert.Nil(t, res.Snapshot)
	assert.Equal(t, "Internal server error", res.SnapshotError)
}

func TestRegisterAbortsWhenAccountCannotBeStored(t *testing.T) {
	f := newProvisioningFixture()
	f.users.createErr = apperr.Internal("create tenant account", errors.New("no primary"))

	_, err := f.svc.Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.Empty(t, f.erp.calls)
}

func TestResumeRerunsUnfinishedSteps(t *testing.T) {
	f := newProvisioningFixture()
	f.erp.fail["CreateUser"] = apperr.Upstream("erp", "create user", errors.New("timeout"))
	f.erp.fail["UpdateUser"] = apperr.Upstream("erp", "update user", errors.New("timeout"))

	res, err := f.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	require.Equal(t, model.RunStatusPartial, res.Status)
	require.Len(t, f.mail.sent, 1)

	delete(f.erp.fail, "CreateUser")
	delete(f.erp.fail, "UpdateUser")
	resumed, err := f.svc.Resume(context.Background(), res.RunID)
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusCompleted, resumed.Status)
	assert.Equal(t, 1, f.erp.count("CreateCompany"))
	assert.Equal(t, 2, f.erp.count("CreateUser"))
	assert.Equal(t, 2, resumed.Steps[1].Attempts)
	assert.Equal(t, 1, resumed.Steps[0].Attempts)

	// a new temporary password is issued and mailed
	assert.Equal(t, "Tmp#Pass0002ab", f.erp.updates["user:owner@acme.io"]["new_password"])
	require.NotNil(t, resumed.Notification)
	assert.True(t, resumed.Notification.Sent)
	require.Len(t, f.mail.sent, 2)
	assert.Contains(t, f.mail.sent[1].HTML, "Tmp#Pass0002ab")

	run, err := f.svc.LatestRun(context.Background(), "owner@acme.io")
	require.NoError(t, err)
	assert.Equal(t, 1, run.Resumes)

	again, err := f.svc.Resume(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, again.Status)
	assert.Equal(t, 2, f.erp.count("CreateUser"))
	assert.Nil(t, again.Notification)
}

func TestResumeKeepsPasswordWhenAlreadySet(t *testing.T) {
	f := newProvisioningFixture()
	f.erp.fail["SetUserPermission"] = apperr.Upstream("erp", "set user permission", errors.New("locked"))

	res, err := f.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	delete(f.erp.fail, "SetUserPermission")

	resumed, err := f.svc.Resume(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, resumed.Status)
	assert.Nil(t, resumed.Notification)
	assert.Equal(t, 1, f.erp.count("UpdateUser"))
	assert.Len(t, f.mail.sent, 1)
}

func TestResumeRejectsBadRunID(t *testing.T) {
	f := newProvisioningFixture()
	_, err := f.svc.Resume(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Resume(context.Background(), "65f0c0ffee0000000000beef")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCompanyAbbr(t *testing.T) {
	assert.Equal(t, "ATC", companyAbbr("Acme Trading Co"))
	assert.Equal(t, "ABCDE", companyAbbr("a b c d e f g"))
	assert.Equal(t, "G", companyAbbr("globex"))
	assert.Equal(t, "T3", companyAbbr("---"))
}
