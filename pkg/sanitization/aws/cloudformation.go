package aws

import (
	"regexp"

	"github.com/klothoplatform/inference-stack/pkg/sanitization"
)

// LogicalIdSanitizer returns a CloudFormation logical id (alphanumeric only) when applied.
var LogicalIdSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9]+`),
			Replacement: "",
		},
	}, 255)

// StackNameSanitizer returns a stack name matching `[a-zA-Z][-a-zA-Z0-9]*` when applied.
var StackNameSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[_\s]+`),
			Replacement: "-",
		},
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9-]+`),
			Replacement: "",
		},
		{
			Pattern:     regexp.MustCompile(`^[^a-zA-Z]+`),
			Replacement: "",
		},
	}, 128)

// ExportNameSanitizer returns a stack output export name when applied.
var ExportNameSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9:-]+`),
			Replacement: "-",
		},
	}, 255)
