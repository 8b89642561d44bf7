package billing

import (
	"testing"

	"erpsaas/internal/apperr"
	"erpsaas/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanMetadataRoundTrip(t *testing.T) {
	in := PlanMetadata{
		Features:    []string{"Quotations", "Invoices"},
		AccessRoles: []string{"Sales User"},
		Limits:      model.PlanLimits{Users: 5, Quotations: -1, Invoices: 100},
	}
	md, err := in.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `["Quotations","Invoices"]`, md["features"])
	assert.JSONEq(t, `["Sales User"]`, md["access_roles"])

	out, err := ParseMetadata(md)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParseMetadataMissingKeys(t *testing.T) {
	out, err := ParseMetadata(map[string]string{"unrelated": "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, out.Features)
	assert.Equal(t, []string{}, out.AccessRoles)
	assert.Equal(t, model.PlanLimits{}, out.Limits)
}

func TestParseMetadataRejectsMalformed(t *testing.T) {
	_, err := ParseMetadata(map[string]string{"features": "Quotations,Invoices"})
	assert.Error(t, err)

	_, err = ParseMetadata(map[string]string{"limits": `{"users":1,"seats":3}`})
	assert.Error(t, err)
}

func TestLimitsBelowUnlimitedRejected(t *testing.T) {
	_, err := PlanMetadata{Limits: model.PlanLimits{Users: -2}}.Encode()
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = ParseMetadata(map[string]string{"limits": `{"customers":-5}`})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestEncodeRejectsOversizedValue(t *testing.T) {
	features := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		features = append(features, "feature-name")
	}
	_, err := PlanMetadata{Features: features}.Encode()
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
