// Package pages holds the server-rendered HTML components. The markup lives
// in the .templ files; run `templ generate` after editing them. This file
// holds the view models and the helpers the templates call.
package pages

import (
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/poklin/poklin/internal/core/domain"
)

//go:generate templ generate

// NavItem is one entry of the signed-in navigation bar.
type NavItem struct {
	Name string
	Href string
}

var navItems = []NavItem{
	{Name: "Feed", Href: "/"},
	{Name: "Dashboard", Href: "/dashboard"},
	{Name: "Envies", Href: "/envies"},
	{Name: "Moments", Href: "/moments"},
}

// Chrome describes the page frame around the children of Layout.
type Chrome struct {
	Title string
	// Active is the href of the highlighted nav item. Empty hides the navbar.
	Active   string
	UserName string
}

func pageTitle(title string) string {
	if title == "" {
		return "Poklin"
	}
	return title + " · Poklin"
}

// ProviderLink is an external sign-in button on the login page.
type ProviderLink struct {
	ID    string
	Label string
}

func (p ProviderLink) href() string {
	return "/auth/oauth/" + url.PathEscape(p.ID) + "/start"
}

// LoginView feeds the login page. Error is shown above the form.
type LoginView struct {
	Email     string
	Error     string
	Notice    string
	Providers []ProviderLink
}

// RegisterView feeds the registration form after a failed attempt.
type RegisterView struct {
	Name  string
	Age   int
	Email string
	Error string
}

func (v RegisterView) ageValue() string {
	if v.Age <= 0 {
		return ""
	}
	return strconv.Itoa(v.Age)
}

var authErrorMessages = map[string]string{
	"OAuthAccountNotLinked": "This email is already registered. Sign in with your password instead.",
	"OAuthCallback":         "The sign-in provider could not complete the request. Please try again.",
	"OAuthState":            "Your sign-in attempt expired. Please start again.",
	"OAuthSignin":           "Could not start signing in with that provider.",
	"CredentialsSignin":     "Sign in failed. Check the details you provided are correct.",
	"SessionRequired":       "Please sign in to access this page.",
}

// AuthErrorMessage returns the user-facing text for an error code.
func AuthErrorMessage(code string) string {
	if msg, ok := authErrorMessages[code]; ok {
		return msg
	}
	return "Unable to sign in."
}

// DashboardView is the display projection of a user on the dashboard.
type DashboardView struct {
	Initial     string
	Name        string
	Email       string
	Age         int
	Image       string
	MemberSince string
	DaysActive  int
}

func NewDashboardView(user *domain.User, now time.Time) DashboardView {
	return DashboardView{
		Initial:     initial(user.Name),
		Name:        user.Name,
		Email:       user.Email,
		Age:         user.Age,
		Image:       user.Image,
		MemberSince: user.MemberSince(),
		DaysActive:  user.DaysActive(now),
	}
}

func (v DashboardView) ageLabel() string {
	if v.Age <= 0 {
		return "Not set"
	}
	return strconv.Itoa(v.Age) + " years"
}

const (
	enviesBlurb  = "Discover events your friends want to attend and add your own aspirations to the mix."
	momentsBlurb = "Capture and share your unforgettable event experiences with photos, videos, and stories."
)

func initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}
