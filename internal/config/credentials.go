package config

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"spirareport/internal/spira"
)

// DefaultTestCase is the testCases entry used when a spec has no mapping of its own.
const DefaultTestCase = "default"

var nonKeyChars = regexp.MustCompile(`[^a-z0-9]`)

// NormalizeKey lower-cases name and drops everything outside [a-z0-9].
func NormalizeKey(name string) string {
	return nonKeyChars.ReplaceAllString(strings.ToLower(name), "")
}

// TestCaseMapping maps normalized spec descriptions to Spira test case ids.
type TestCaseMapping struct {
	Default    int
	HasDefault bool
	byKey      map[string]int
}

// NewTestCaseMapping builds a mapping from raw testCases configuration.
// Names that collide after normalization resolve to the lexically last raw name.
// A name normalizing to "default" (such as "Default") replaces the default entry.
func NewTestCaseMapping(raw map[string]int) *TestCaseMapping {
	m := &TestCaseMapping{byKey: make(map[string]int, len(raw))}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	if id, ok := raw[DefaultTestCase]; ok {
		m.Default = id
		m.HasDefault = true
	}
	for _, name := range names {
		if name == DefaultTestCase {
			continue
		}
		key := NormalizeKey(name)
		if key == DefaultTestCase {
			m.Default = raw[name]
			m.HasDefault = true
			continue
		}
		m.byKey[key] = raw[name]
	}
	return m
}

// Mapped returns the explicit test case for description, if any.
func (m *TestCaseMapping) Mapped(description string) (int, bool) {
	if m == nil {
		return 0, false
	}
	id, ok := m.byKey[NormalizeKey(description)]
	return id, ok
}

// Lookup returns the test case for description, falling back to the default.
func (m *TestCaseMapping) Lookup(description string) int {
	if id, ok := m.Mapped(description); ok {
		return id
	}
	if m == nil {
		return 0
	}
	return m.Default
}

// Len is the number of explicit (non-default) entries.
func (m *TestCaseMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byKey)
}

// Credentials is everything needed to address Spira and label recorded runs.
type Credentials struct {
	URL       string
	Username  string
	Token     string
	ProjectID int
	ReleaseID *int
	TestSetID *int
	TestCases *TestCaseMapping
}

// NewCredentials validates s and builds Credentials from it.
// Every problem is logged and collected in the returned *ValidationError, but the
// Credentials are returned regardless with whatever fields were usable, leaving the
// decision to abort to the caller.
func NewCredentials(s Settings, logger *slog.Logger) (*Credentials, error) {
	if logger == nil {
		logger = slog.Default()
	}

	creds := &Credentials{
		Username:  s.Username,
		Token:     s.Token,
		ReleaseID: s.ReleaseID,
		TestSetID: s.TestSetID,
	}
	verr := &ValidationError{}

	switch {
	case s.URL == "":
		verr.add("url", "is required")
	default:
		if _, err := spira.ParseBaseURL(s.URL); err != nil {
			verr.add("url", "%v", err)
		} else {
			creds.URL = s.URL
		}
	}

	if s.Username == "" {
		verr.add("username", "is required")
	}
	if s.Token == "" {
		verr.add("token", "is required")
	}

	switch {
	case s.ProjectID == nil:
		verr.add("projectId", "is required")
	case *s.ProjectID <= 0:
		verr.add("projectId", "must be positive, got: %d", *s.ProjectID)
	default:
		creds.ProjectID = *s.ProjectID
	}

	if s.TestCases == nil {
		verr.add("testCases", "is required")
	} else {
		creds.TestCases = NewTestCaseMapping(s.TestCases)
		if !creds.TestCases.HasDefault {
			verr.add("testCases.default", "is required")
		}
	}

	for _, p := range verr.Problems {
		logger.Error("Spira configuration problem", "field", p.Field, "problem", p.Message)
	}

	return creds, verr.errOrNil()
}
