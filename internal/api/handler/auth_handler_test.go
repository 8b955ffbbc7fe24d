package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/core/ports"
)

func newTestAuthHandler(reg ports.Registrar, creds ports.CredentialsProvider, users ports.UserReader) *AuthHandler {
	if creds == nil {
		creds = &stubCredentials{}
	}
	return NewAuthHandler(AuthDeps{
		Registrar:   reg,
		Credentials: creds,
		Sessions:    &stubSessions{},
		Users:       users,
		Cookie:      testJar(),
		Log:         nopLog(),
	})
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newEcho()
	stub := &stubRegistrar{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Name != "Alice" || in.Age != 30 || in.Email != "alice@example.com" || in.Password != "Secret123!" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: "u1", Name: in.Name, Age: in.Age, Email: in.Email}, nil
		},
	}
	handler := newTestAuthHandler(stub, nil, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register",
		`{"name":"Alice","age":30,"email":"alice@example.com","password":"Secret123!"}`), rec)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"] != "User created successfully" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["email"] != "alice@example.com" || user["id"] != "u1" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if _, leaked := user["password"]; leaked {
		t.Fatalf("password must not be returned")
	}
	if _, ok := user["createdAt"]; !ok {
		t.Fatalf("createdAt missing from payload")
	}
}

func TestAuthHandler_Register_Failures(t *testing.T) {
	cases := map[string]struct {
		err      error
		wantCode int
		wantMsg  string
	}{
		"duplicate":  {domain.ErrDuplicateEmail, http.StatusBadRequest, "Email already exists"},
		"validation": {&domain.ValidationError{Message: "age must be at least 13"}, http.StatusBadRequest, "age must be at least 13"},
		"store":      {errors.New("connection reset"), http.StatusInternalServerError, "Something went wrong"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEcho()
			handler := newTestAuthHandler(&stubRegistrar{
				registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
					return nil, tc.err
				},
			}, nil, nil)

			rec := httptest.NewRecorder()
			c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", `{"name":"Bob"}`), rec)
			if err := handler.Register(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}

			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Error != tc.wantMsg {
				t.Fatalf("expected %q, got %q", tc.wantMsg, resp.Error)
			}
			if strings.Contains(rec.Body.String(), "connection reset") {
				t.Fatalf("internal error leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	e := newEcho()
	handler := newTestAuthHandler(&stubRegistrar{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			t.Fatalf("registrar must not be called")
			return nil, nil
		},
	}, nil, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", `{"age":"thirty"}`), rec)
	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_FormRedirectsToLogin(t *testing.T) {
	e := newEcho()
	handler := newTestAuthHandler(&stubRegistrar{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Age != 30 {
				t.Fatalf("age not bound from form: %+v", in)
			}
			return &domain.User{ID: "u1", Email: in.Email}, nil
		},
	}, nil, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest("/auth/register", url.Values{
		"name": {"Alice"}, "age": {"30"}, "email": {"alice@example.com"}, "password": {"Secret123!"},
	}), rec)
	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/auth/login?registered=1" {
		t.Fatalf("unexpected location %q", loc)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newEcho()
	creds := &stubCredentials{
		authenticateFn: func(ctx context.Context, email, password string) (*domain.Identity, error) {
			return &domain.Identity{ID: "u1", Email: email, Name: "Alice"}, nil
		},
	}
	handler := newTestAuthHandler(nil, creds, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"Secret123!"}`), rec)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "token-u1" || !cookies[0].HttpOnly {
		t.Fatalf("expected http-only session cookie, got %+v", cookies)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.User.ID != "u1" || resp.Expires.IsZero() {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	creds := &stubCredentials{
		authenticateFn: func(ctx context.Context, email, password string) (*domain.Identity, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}

	bodies := []string{
		`{"email":"alice@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"whatever"}`,
		`{"email":"","password":""}`,
	}
	var first string
	for _, body := range bodies {
		e := newEcho()
		handler := newTestAuthHandler(nil, creds, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", body), rec)
		if err := handler.Login(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("body %s: expected 401, got %d", body, rec.Code)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Fatalf("no cookie may be set on failure")
		}
		if first == "" {
			first = rec.Body.String()
		} else if rec.Body.String() != first {
			t.Fatalf("failure responses differ: %q vs %q", first, rec.Body.String())
		}
	}
}

func TestAuthHandler_Login_FormFailureRendersPage(t *testing.T) {
	e := newEcho()
	handler := newTestAuthHandler(nil, &stubCredentials{
		authenticateFn: func(ctx context.Context, email, password string) (*domain.Identity, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest("/auth/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong"}}), rec)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid credentials") || !strings.Contains(rec.Body.String(), `value="alice@example.com"`) {
		t.Fatalf("login page not re-rendered: %s", rec.Body.String())
	}
}

func TestAuthHandler_Login_StoreErrorIs500(t *testing.T) {
	e := newEcho()
	handler := newTestAuthHandler(nil, &stubCredentials{
		authenticateFn: func(ctx context.Context, email, password string) (*domain.Identity, error) {
			return nil, errors.New("db down")
		},
	}, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"x"}`), rec)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthHandler_LoginPage_RedirectsSignedInUser(t *testing.T) {
	e := newEcho()
	handler := newTestAuthHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/login", nil), rec)
	signIn(c, "u1")
	if err := handler.LoginPage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/" {
		t.Fatalf("expected redirect home, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
}

func TestAuthHandler_LoginPage_ShowsErrorCode(t *testing.T) {
	e := newEcho()
	handler := newTestAuthHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/login?error=SessionRequired", nil), rec)
	if err := handler.LoginPage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Please sign in") {
		t.Fatalf("unexpected login page: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	e := newEcho()
	handler := newTestAuthHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), rec)
	signIn(c, "u1")
	if err := handler.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/auth/login" {
		t.Fatalf("expected redirect to login, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cookies)
	}
}

func TestAuthHandler_Session(t *testing.T) {
	users := &stubUsers{users: map[string]*domain.User{
		"u1": {ID: "u1", Name: "Alice", Email: "alice@example.com", PasswordHash: "$2a$10$secret"},
	}}
	handler := newTestAuthHandler(nil, nil, users)

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := newEcho().NewContext(httptest.NewRequest(http.MethodGet, "/auth/session", nil), rec)
		if err := handler.Session(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if strings.TrimSpace(rec.Body.String()) != "{}" {
			t.Fatalf("expected empty object, got %s", rec.Body.String())
		}
	})

	t.Run("signed in", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := newEcho().NewContext(httptest.NewRequest(http.MethodGet, "/auth/session", nil), rec)
		signIn(c, "u1")
		if err := handler.Session(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		var resp sessionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if resp.User == nil || resp.User.Email != "alice@example.com" || resp.Expires == nil {
			t.Fatalf("unexpected session: %s", rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), "secret") {
			t.Fatalf("password hash leaked")
		}
	})

	t.Run("user deleted", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := newEcho().NewContext(httptest.NewRequest(http.MethodGet, "/auth/session", nil), rec)
		signIn(c, "gone")
		if err := handler.Session(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if strings.TrimSpace(rec.Body.String()) != "{}" {
			t.Fatalf("expected empty object, got %s", rec.Body.String())
		}
	})
}
