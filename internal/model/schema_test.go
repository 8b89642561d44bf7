package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func storedKeys(t *testing.T, v any) bson.M {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func TestProfileCompletionStoresNestedMilestones(t *testing.T) {
	doc := storedKeys(t, ProfileCompletionSnapshot{
		Email:           "a@b.co",
		CompanyCreation: Milestone{Done: true, Percent: 25},
	})

	company, ok := doc["companyCreation"].(bson.M)
	require.True(t, ok, "companyCreation should be a subdocument")
	assert.Equal(t, true, company["done"])
	assert.EqualValues(t, 25, company["percent"])
	for _, key := range []string{"userCreation", "employeeCreation", "assignmentCreation"} {
		assert.Contains(t, doc, key)
	}
	assert.NotContains(t, doc, "Company_Creation")
	assert.NotContains(t, doc, "Company_Creation_prcnt")
}

func TestTenantAccountStoresHashNotPassword(t *testing.T) {
	doc := storedKeys(t, TenantAccount{
		Email:           "a@b.co",
		PasswordHash:    "$2a$10$hash",
		TaxID:           "123",
		EstablishedDate: "2020-01-01",
	})

	assert.Equal(t, "$2a$10$hash", doc["passwordHash"])
	assert.NotContains(t, doc, "password")
	assert.Equal(t, "123", doc["tax_id"])
	assert.Equal(t, "2020-01-01", doc["date_established"])
}
