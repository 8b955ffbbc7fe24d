package pages

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/poklin/poklin/internal/core/domain"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func alice() *domain.User {
	return &domain.User{
		ID:        "u1",
		Name:      "alice",
		Age:       30,
		Email:     "alice@example.com",
		CreatedAt: time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestDashboard_RendersUserStats(t *testing.T) {
	now := time.Date(2024, time.January, 20, 11, 0, 0, 0, time.UTC)
	html := render(t, Dashboard(NewDashboardView(alice(), now)))

	for _, want := range []string{
		`<span class="initial">A</span>`,
		"alice@example.com",
		"30 years",
		"January 2024",
		"<dt>Days Active</dt><dd>9</dd>",
		`class="nav-link active" href="/dashboard"`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in dashboard:\n%s", want, html)
		}
	}
}

func TestDashboard_EscapesUserData(t *testing.T) {
	u := alice()
	u.Name = `<script>alert(1)</script>`
	html := render(t, Dashboard(NewDashboardView(u, time.Now())))

	if strings.Contains(html, "<script>") {
		t.Fatalf("user name was not escaped:\n%s", html)
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Fatalf("expected escaped name in output")
	}
}

func TestDashboard_OAuthUserWithoutAge(t *testing.T) {
	u := alice()
	u.Age = 0
	u.Image = "https://example.com/a.png"
	html := render(t, Dashboard(NewDashboardView(u, time.Now())))

	if !strings.Contains(html, "Not set") || !strings.Contains(html, `src="https://example.com/a.png"`) {
		t.Fatalf("unexpected dashboard for oauth user:\n%s", html)
	}
}

func TestLogin_ShowsErrorAndProviders(t *testing.T) {
	html := render(t, Login(LoginView{
		Email:     `a"b@example.com`,
		Error:     "Invalid credentials",
		Providers: []ProviderLink{{ID: "google", Label: "Google"}},
	}))

	if !strings.Contains(html, "Invalid credentials") {
		t.Fatalf("missing error message")
	}
	if !strings.Contains(html, `href="/auth/oauth/google/start"`) {
		t.Fatalf("missing provider link")
	}
	if strings.Contains(html, `value="a"b@example.com"`) {
		t.Fatalf("email attribute not escaped")
	}
	if strings.Contains(html, `class="navbar"`) {
		t.Fatalf("login page must not render the navbar")
	}
}

func TestComingSoonPages(t *testing.T) {
	for name, c := range map[string]templ.Component{
		"Envies":  Envies(alice()),
		"Moments": Moments(alice()),
	} {
		html := render(t, c)
		if !strings.Contains(html, "<h1>"+name+"</h1>") || !strings.Contains(html, "coming soon") {
			t.Fatalf("%s page missing content:\n%s", name, html)
		}
	}
}

func TestAuthErrorMessage(t *testing.T) {
	if got := AuthErrorMessage("OAuthAccountNotLinked"); !strings.Contains(got, "already registered") {
		t.Fatalf("unexpected message %q", got)
	}
	if got := AuthErrorMessage("whatever"); got != "Unable to sign in." {
		t.Fatalf("unexpected fallback %q", got)
	}
}

func TestInitial(t *testing.T) {
	cases := map[string]string{"alice": "A", " élodie": "É", "": "?"}
	for in, want := range cases {
		if got := initial(in); got != want {
			t.Fatalf("initial(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLayout_WrapsChildrenInMain(t *testing.T) {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<p>inner</p>")
		return err
	})
	var buf bytes.Buffer
	ctx := templ.WithChildren(context.Background(), body)
	if err := Layout(Chrome{Title: "Sign in"}).Render(ctx, &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()

	if !strings.Contains(html, "<main><p>inner</p></main>") {
		t.Fatalf("children not rendered inside main:\n%s", html)
	}
	if !strings.Contains(html, "<title>Sign in · Poklin</title>") {
		t.Fatalf("unexpected title:\n%s", html)
	}
	if strings.Contains(html, `class="navbar"`) {
		t.Fatalf("navbar rendered on a signed-out page")
	}
}

func TestAuthError_StateMismatchMessage(t *testing.T) {
	html := render(t, AuthError("OAuthState"))
	if !strings.Contains(html, "Your sign-in attempt expired.") {
		t.Fatalf("unexpected auth error page:\n%s", html)
	}
}
