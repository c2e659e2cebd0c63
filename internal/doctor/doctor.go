// Package doctor validates palisade configuration beyond what config.Load
// enforces: credential formats, URL syntax, storage placement, and API
// token hygiene.
package doctor

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mattjoyce/palisade/internal/config"
	"github.com/mattjoyce/palisade/internal/storage"
	"github.com/mattjoyce/palisade/internal/webhook"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor runs deep checks against a loaded configuration.
type Doctor struct {
	cfg *config.Config

	// checkFilesystem is swapped out in tests.
	checkFilesystem func(path string) error
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg, checkFilesystem: storage.ValidateFilesystem}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validatePlatform(r)
	d.validateWebhook(r)
	d.validateStorage(r)
	d.validateAPI(r)
	d.validateTokenScopes(r)
	d.warnDedupe(r)
	d.warnDeprecatedAuth(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validatePlatform checks the outbound API settings.
func (d *Doctor) validatePlatform(r *Result) {
	u, err := url.Parse(d.cfg.Platform.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		d.addError(r, "platform", "platform.base_url",
			fmt.Sprintf("base_url %q is not an absolute URL", d.cfg.Platform.BaseURL))
		return
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		d.addError(r, "platform", "platform.base_url",
			fmt.Sprintf("base_url scheme %q is not http or https", u.Scheme))
	}
	if u.Scheme == "http" && !isLoopbackHost(u.Hostname()) {
		d.addWarning(r, "platform", "platform.base_url",
			"base_url uses plain http to a non-local host; the API key travels unencrypted")
	}

	if d.cfg.Platform.RequestTimeout < time.Second {
		d.addWarning(r, "platform", "platform.request_timeout",
			fmt.Sprintf("request_timeout %s is very short; expanded deployment fetches may not finish", d.cfg.Platform.RequestTimeout))
	}
}

// validateWebhook checks the signing secret and listener settings.
func (d *Doctor) validateWebhook(r *Result) {
	if _, err := webhook.NewVerifier(d.cfg.Webhook.Secret, d.cfg.Webhook.Tolerance); err != nil {
		d.addError(r, "webhook", "webhook.secret",
			fmt.Sprintf("signing secret rejected: %v", err))
	}
	if !strings.HasPrefix(strings.TrimSpace(d.cfg.Webhook.Secret), "whsec_") {
		d.addWarning(r, "webhook", "webhook.secret",
			"secret has no whsec_ prefix; double-check it was copied from the platform endpoint page")
	}

	if _, err := webhook.FromGlobalConfig(d.cfg.Webhook); err != nil {
		d.addError(r, "webhook", "webhook.max_body_size", err.Error())
	}

	if d.cfg.Webhook.Tolerance > 15*time.Minute {
		d.addWarning(r, "webhook", "webhook.tolerance",
			fmt.Sprintf("timestamp tolerance %s is large; replayed deliveries stay valid that long", d.cfg.Webhook.Tolerance))
	}
}

// validateStorage checks the ledger database placement.
func (d *Doctor) validateStorage(r *Result) {
	if err := d.checkFilesystem(d.cfg.Storage.Path); err != nil {
		d.addError(r, "storage", "storage.path", err.Error())
	}
	if d.cfg.Storage.Retention < 24*time.Hour {
		d.addWarning(r, "storage", "storage.retention",
			fmt.Sprintf("retention %s keeps less than a day of delivery history", d.cfg.Storage.Retention))
	}
}

// validateAPI checks admin API settings.
func (d *Doctor) validateAPI(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	if d.cfg.API.Listen == "" {
		d.addError(r, "api", "api.listen", "api.listen is required when API is enabled")
	}
	if d.cfg.API.Auth.APIKey == "" && len(d.cfg.API.Auth.Tokens) == 0 {
		d.addWarning(r, "api", "api.auth", "API enabled but no authentication configured")
	}
	if d.cfg.API.Listen != "" && !isLoopbackHost(listenHost(d.cfg.API.Listen)) {
		d.addWarning(r, "api", "api.listen",
			fmt.Sprintf("API listens on non-loopback address %q; make sure that is intentional", d.cfg.API.Listen))
	}
}

var knownScopes = map[string]struct{}{
	"*":             {},
	"deliveries:ro": {},
	"deliveries:rw": {},
	"events:ro":     {},
	"events:rw":     {},
}

// validateTokenScopes checks that every scope names a real resource.
func (d *Doctor) validateTokenScopes(r *Result) {
	for i, token := range d.cfg.API.Auth.Tokens {
		for j, scope := range token.Scopes {
			field := fmt.Sprintf("api.auth.tokens[%d].scopes[%d]", i, j)
			if _, ok := knownScopes[strings.TrimSpace(scope)]; !ok {
				d.addError(r, "token_scopes", field,
					fmt.Sprintf("unknown scope %q (expected deliveries:ro, deliveries:rw, events:ro, events:rw, or *)", scope))
			}
		}
	}
}

// warnDedupe flags dedupe configurations that silently drop work.
func (d *Doctor) warnDedupe(r *Result) {
	if !d.cfg.Webhook.Dedupe {
		return
	}
	d.addWarning(r, "dedupe", "webhook.dedupe",
		"dedupe drops platform redeliveries; a delivery that failed mid-handling will not be retried into success until dedupe_ttl passes")
	if d.cfg.Webhook.DedupeTTL > 0 && d.cfg.Webhook.DedupeTTL < time.Minute {
		d.addWarning(r, "dedupe", "webhook.dedupe_ttl",
			fmt.Sprintf("dedupe_ttl %s is shorter than the platform's usual retry backoff", d.cfg.Webhook.DedupeTTL))
	}
}

// warnDeprecatedAuth warns about legacy auth patterns.
func (d *Doctor) warnDeprecatedAuth(r *Result) {
	if d.cfg.API.Auth.APIKey != "" && len(d.cfg.API.Auth.Tokens) > 0 {
		d.addWarning(r, "deprecated", "api.auth",
			"both api_key and tokens configured; prefer tokens array only")
	}
	if d.cfg.API.Auth.APIKey != "" && len(d.cfg.API.Auth.Tokens) == 0 {
		d.addWarning(r, "deprecated", "api.auth.api_key",
			"legacy api_key grants full access; migrate to tokens array with scopes")
	}
}

// isLoopbackHost reports whether host names the local machine. An empty
// host is not loopback: in a listen address it means all interfaces.
func isLoopbackHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func listenHost(listen string) string {
	idx := strings.LastIndex(listen, ":")
	if idx < 0 {
		return listen
	}
	return strings.Trim(listen[:idx], "[]")
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
