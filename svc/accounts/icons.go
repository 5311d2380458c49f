package accounts

import (
	"strings"

	"golang.org/x/text/cases"
)

var issuerIcons = map[string]string{
	"github":              "github",
	"github.com":          "github",
	"google":              "google",
	"google.com":          "google",
	"gmail":               "google",
	"microsoft":           "microsoft",
	"microsoft.com":       "microsoft",
	"outlook":             "microsoft",
	"amazon":              "amazonaws",
	"amazon.com":          "amazonaws",
	"aws":                 "amazonaws",
	"amazon web services": "amazonaws",
	"facebook":            "facebook",
	"facebook.com":        "facebook",
	"twitter":             "twitter",
	"twitter.com":         "twitter",
	"x":                   "twitter",
	"x.com":               "twitter",
	"linkedin":            "linkedin",
	"linkedin.com":        "linkedin",
	"dropbox":             "dropbox",
	"dropbox.com":         "dropbox",
	"slack":               "slack",
	"slack.com":           "slack",
	"discord":             "discord",
	"discord.com":         "discord",
	"gitlab":              "gitlab",
	"gitlab.com":          "gitlab",
	"bitbucket":           "bitbucket",
	"bitbucket.org":       "bitbucket",
	"stripe":              "stripe",
	"stripe.com":          "stripe",
	"paypal":              "paypal",
	"paypal.com":          "paypal",
	"npm":                 "npm",
	"npmjs.com":           "npm",
	"docker":              "docker",
	"docker.com":          "docker",
	"docker hub":          "docker",
	"cloudflare":          "cloudflare",
	"cloudflare.com":      "cloudflare",
	"digitalocean":        "digitalocean",
	"vercel":              "vercel",
	"vercel.com":          "vercel",
	"netlify":             "netlify",
	"netlify.com":         "netlify",
	"heroku":              "heroku",
	"heroku.com":          "heroku",
}

// fold normalizes text for case-insensitive comparison.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// DetectIcon maps a well-known issuer name to its icon identifier.
// Unknown issuers yield "".
func DetectIcon(issuer string) string {
	return issuerIcons[fold(issuer)]
}
