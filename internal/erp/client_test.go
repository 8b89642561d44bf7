package erp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"erpsaas/internal/apperr"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCreds Credentials

func (s staticCreds) ERPCredentials(context.Context) (Credentials, error) {
	return Credentials(s), nil
}

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			method: r.Method,
			path:   r.URL.EscapedPath(),
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
		}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			require.NoError(t, json.Unmarshal(b, &rec.body))
		}
		calls = append(calls, rec)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestCreateCompany(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{"data":{"name":"Acme"}}`)
	c := New(staticCreds{BaseURL: srv.URL + "/api/", Token: "key:secret"}, 0, zerolog.Nop())

	raw, err := c.CreateCompany(context.Background(), Company{CompanyName: "Acme", Abbr: "AC", DefaultCurrency: "USD"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"name":"Acme"}}`, string(raw))

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/api/resource/Company", call.path)
	assert.Equal(t, "token key:secret", call.auth)
	assert.Equal(t, "Acme", call.body["company_name"])
	assert.Equal(t, "USD", call.body["default_currency"])
}

func TestSetUserPermissionScopesToSelf(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{"data":{}}`)
	c := New(staticCreds{BaseURL: srv.URL, Token: "t"}, 0, zerolog.Nop())

	_, err := c.SetUserPermission(context.Background(), "jane@acme.io")
	require.NoError(t, err)

	call := (*calls)[0]
	assert.Equal(t, "/resource/User%20Permission", call.path)
	assert.Equal(t, "jane@acme.io", call.body["user"])
	assert.Equal(t, "User", call.body["allow"])
	assert.Equal(t, "jane@acme.io", call.body["for_value"])
	assert.EqualValues(t, 1, call.body["apply_to_all_doctypes"])
}

func TestCreateEmployeeReturnsName(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"data":{"name":"HR-EMP-00012"}}`)
	c := New(staticCreds{BaseURL: srv.URL, Token: "t"}, 0, zerolog.Nop())

	id, raw, err := c.CreateEmployee(context.Background(), Employee{FirstName: "Jane"})
	require.NoError(t, err)
	assert.Equal(t, "HR-EMP-00012", id)
	assert.NotEmpty(t, raw)
}

func TestCreateEmployeeWithoutName(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"data":{}}`)
	c := New(staticCreds{BaseURL: srv.URL, Token: "t"}, 0, zerolog.Nop())

	id, _, err := c.CreateEmployee(context.Background(), Employee{})
	assert.Empty(t, id)
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestErrorStatusBecomesUpstreamError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusConflict, `{"exc_type":"DuplicateEntryError"}`)
	c := New(staticCreds{BaseURL: srv.URL, Token: "t"}, 0, zerolog.Nop())

	_, err := c.CreateUser(context.Background(), User{Email: "jane@acme.io"})
	require.Error(t, err)

	var ue *apperr.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "erp", ue.Service)
	assert.Equal(t, "create user", ue.Op)
	assert.Equal(t, http.StatusConflict, ue.Status)
	assert.Contains(t, ue.Message, "DuplicateEntryError")
}

func TestMissingBaseURL(t *testing.T) {
	c := New(staticCreds{}, 0, zerolog.Nop())

	_, err := c.ListCountries(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestExistsPicksDoctypeByField(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{"data":[{"name":"jane@acme.io"}]}`)
	c := New(staticCreds{BaseURL: srv.URL, Token: "t"}, 0, zerolog.Nop())

	found, _, err := c.Exists(context.Background(), "email", "jane@acme.io")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "/resource/User", (*calls)[0].path)
	assert.Contains(t, (*calls)[0].query, "filters=")

	_, _, err = c.Exists(context.Background(), "company_name", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "/resource/Company", (*calls)[1].path)
}

func TestFilterQuery(t *testing.T) {
	q, err := filterQuery("company", "Acme Ltd", true)
	require.NoError(t, err)
	assert.Equal(t, "fields=%5B%22%2A%22%5D&filters=%5B%5B%22company%22%2C%22%3D%22%2C%22Acme+Ltd%22%5D%5D", q)
}

func TestGetUserNotFoundCarriesStatus(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusNotFound, `{"exc_type":"DoesNotExistError"}`)
	c := New(staticCreds{BaseURL: srv.URL, Token: "t"}, 0, zerolog.Nop())

	_, err := c.GetUser(context.Background(), "jane@acme.io")
	var upstream *apperr.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusNotFound, upstream.Status)
	assert.Equal(t, http.MethodGet, (*calls)[0].method)
	assert.Equal(t, "/resource/User/jane@acme.io", (*calls)[0].path)
}
