package rbac

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func doRequest(t *testing.T, mw func(http.Handler) http.Handler, actorID int64) int {
	t.Helper()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if actorID != 0 {
		req = req.WithContext(shared.ContextWithActor(req.Context(), actorID))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireAny(t *testing.T) {
	m := Middleware{
		Authorizer: StaticAuthorizer{Grants: map[int64][]string{
			1: {"orders.view"},
			2: {"invoices.view"},
			3: {"*"},
		}},
		Logger: slog.New(slog.DiscardHandler),
	}

	mw := m.RequireAny("orders.view", "orders.create")
	assert.Equal(t, http.StatusOK, doRequest(t, mw, 1))
	assert.Equal(t, http.StatusForbidden, doRequest(t, mw, 2))
	assert.Equal(t, http.StatusOK, doRequest(t, mw, 3), "wildcard grants everything")
	assert.Equal(t, http.StatusForbidden, doRequest(t, mw, 99), "unknown actor")
	assert.Equal(t, http.StatusForbidden, doRequest(t, mw, 0), "missing actor")
}

func TestRequireAll(t *testing.T) {
	m := Middleware{
		Authorizer: StaticAuthorizer{Grants: map[int64][]string{
			1: {"orders.view", "orders.edit"},
			2: {"orders.view"},
		}},
		Logger: slog.New(slog.DiscardHandler),
	}

	mw := m.RequireAll("orders.view", "orders.edit")
	assert.Equal(t, http.StatusOK, doRequest(t, mw, 1))
	assert.Equal(t, http.StatusForbidden, doRequest(t, mw, 2))
}

func TestEmptyPermissionListPasses(t *testing.T) {
	m := Middleware{Authorizer: StaticAuthorizer{}}
	assert.Equal(t, http.StatusOK, doRequest(t, m.RequireAny(), 0))
	assert.Equal(t, http.StatusOK, doRequest(t, m.RequireAll("", "  "), 0))
}

func TestPermissionMatchingIsCaseInsensitive(t *testing.T) {
	m := Middleware{
		Authorizer: StaticAuthorizer{Grants: map[int64][]string{
			1: {"Orders.View"},
		}},
	}
	assert.Equal(t, http.StatusOK, doRequest(t, m.RequireAny("ORDERS.VIEW"), 1))
}
