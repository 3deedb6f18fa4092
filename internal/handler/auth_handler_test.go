package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portal-service/internal/model"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type stubUserFinder struct {
	users map[string]*model.User
	err   error
}

func (s *stubUserFinder) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func postLogin(t *testing.T, h *AuthHandler, body string, host string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if host != "" {
		req.Host = host
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Login(c)
	assert.NoError(t, err)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLoginMissingFields(t *testing.T) {
	h := NewAuthHandler(&stubUserFinder{})

	for _, body := range []string{
		`{}`,
		`{"email":"a@b.com"}`,
		`{"password":"secret"}`,
	} {
		rec := postLogin(t, h, body, "")
		resp := decodeBody(t, rec)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "Email and password are required", resp["message"])
	}
}

func TestLoginUserNotFound(t *testing.T) {
	h := NewAuthHandler(&stubUserFinder{users: map[string]*model.User{}})

	rec := postLogin(t, h, `{"email":"missing@acme.com","password":"secret"}`, "")
	resp := decodeBody(t, rec)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "User not found. Please register first.", resp["message"])
}

func TestLoginInvalidPassword(t *testing.T) {
	h := NewAuthHandler(&stubUserFinder{users: map[string]*model.User{
		"jane@acme.com": {ID: 1, Email: "jane@acme.com", Password: "right", Name: "Jane"},
	}})

	rec := postLogin(t, h, `{"email":"jane@acme.com","password":"wrong"}`, "")
	resp := decodeBody(t, rec)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid password", resp["message"])
}

func TestLoginWithoutCompany(t *testing.T) {
	h := NewAuthHandler(&stubUserFinder{users: map[string]*model.User{
		"jane@acme.com": {ID: 1, Email: "jane@acme.com", Password: "secret", Name: "Jane"},
	}})

	rec := postLogin(t, h, `{"email":"jane@acme.com","password":"secret"}`, "")
	resp := decodeBody(t, rec)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["success"])

	user := resp["user"].(map[string]interface{})
	assert.Equal(t, "jane@acme.com", user["email"])
	assert.Equal(t, "", user["companyName"])
	assert.Empty(t, user["items"])
}

func TestLoginEnrichesItemsFromLookupEndpoint(t *testing.T) {
	items := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/items/getItems", r.URL.Path)
		assert.Equal(t, "acme", r.URL.Query().Get("companyName"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"items":[{"itemname":"Widget","itemcode":"W1","createdat":"2024-01-01"}]}`))
	}))
	defer items.Close()

	h := NewAuthHandler(&stubUserFinder{users: map[string]*model.User{
		"jane@acme.com": {ID: 1, Email: "jane@acme.com", Password: "secret", Name: "Jane", CompanyName: "acme"},
	}})

	host := strings.TrimPrefix(items.URL, "http://")
	rec := postLogin(t, h, `{"email":"jane@acme.com","password":"secret"}`, host)
	resp := decodeBody(t, rec)

	assert.Equal(t, http.StatusOK, rec.Code)
	user := resp["user"].(map[string]interface{})
	assert.Equal(t, "acme", user["companyName"])

	list := user["items"].([]interface{})
	assert.Len(t, list, 1)
	row := list[0].(map[string]interface{})
	assert.Equal(t, "Widget", row["itemname"])
	assert.Equal(t, "W1", row["itemcode"])
}

func TestLoginSucceedsWhenEnrichmentFails(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"schema missing": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"message":"Company schema 'acme' not found","error":"SCHEMA_NOT_FOUND"}`))
		},
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"malformed payload": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		},
	}

	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			items := httptest.NewServer(fn)
			defer items.Close()

			h := NewAuthHandler(&stubUserFinder{users: map[string]*model.User{
				"jane@acme.com": {ID: 1, Email: "jane@acme.com", Password: "secret", CompanyName: "acme"},
			}})

			host := strings.TrimPrefix(items.URL, "http://")
			rec := postLogin(t, h, `{"email":"jane@acme.com","password":"secret"}`, host)
			resp := decodeBody(t, rec)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, true, resp["success"])
			user := resp["user"].(map[string]interface{})
			assert.Empty(t, user["items"])
		})
	}
}

func TestLoginInternalError(t *testing.T) {
	h := NewAuthHandler(&stubUserFinder{err: context.DeadlineExceeded})

	rec := postLogin(t, h, `{"email":"jane@acme.com","password":"secret"}`, "")
	resp := decodeBody(t, rec)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Authentication failed", resp["message"])
}
