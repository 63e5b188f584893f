package chunker

import (
	"strings"

	"github.com/custodia-labs/manualkit/internal/core/domain"
)

// Classifiers below are pure keyword matchers over lower-cased content.
// Category order is fixed: the first matching category wins, so tagging is
// reproducible across runs. Do not reorder the checks.

var sectionKeywords = []struct {
	section  string
	keywords []string
}{
	{domain.SectionSafety, []string{"safety", "warning", "caution", "danger"}},
	{domain.SectionInstallation, []string{"installation", "mounting", "assembly"}},
	{domain.SectionWiring, []string{"wiring", "connection", "terminal"}},
	{domain.SectionTroubleshooting, []string{"troubleshooting", "problem", "fault"}},
	{domain.SectionSpecifications, []string{"specification", "technical", "parameter"}},
}

var safetyLevelKeywords = []struct {
	level    domain.SafetyLevel
	keywords []string
}{
	{domain.SafetyCritical, []string{"danger", "fatal", "death", "electrocution"}},
	{domain.SafetyWarning, []string{"warning", "caution", "risk"}},
}

var componentKeywords = []struct {
	component string
	keywords  []string
}{
	{"surge_protector", []string{"surge protector", "spd", "dehnguard", "dehnventil"}},
	{"terminal_block", []string{"terminal", "connection block", "connector"}},
	{"wire", []string{"wire", "cable", "conductor"}},
	{"ground", []string{"ground", "earth", "pe"}},
	{"mounting", []string{"mounting", "bracket", "rail"}},
}

// DetectSection classifies text into a manual section.
// Priority: safety > installation > wiring > troubleshooting >
// specifications > general.
func DetectSection(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range sectionKeywords {
		if containsAny(lower, entry.keywords) {
			return entry.section
		}
	}
	return domain.SectionGeneral
}

// DetectSafetyLevel classifies text severity.
// Priority: critical > warning > info.
func DetectSafetyLevel(text string) domain.SafetyLevel {
	lower := strings.ToLower(text)
	for _, entry := range safetyLevelKeywords {
		if containsAny(lower, entry.keywords) {
			return entry.level
		}
	}
	return domain.SafetyInfo
}

// DetectComponentTypes returns the component categories mentioned in the
// text, in the classifier's fixed order. Nil when nothing matches.
func DetectComponentTypes(text string) []string {
	lower := strings.ToLower(text)
	var components []string
	for _, entry := range componentKeywords {
		if containsAny(lower, entry.keywords) {
			components = append(components, entry.component)
		}
	}
	return components
}

// Tag applies all three classifiers to a chunk in place.
func Tag(c *domain.Chunk) {
	c.Section = DetectSection(c.Content)
	c.SafetyLevel = DetectSafetyLevel(c.Content)
	c.ComponentTags = DetectComponentTypes(c.Content)
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
