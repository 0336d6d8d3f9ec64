package aws

import (
	"regexp"

	"github.com/klothoplatform/inference-stack/pkg/sanitization"
)

// IamPolicySanitizer returns a sanitized inline policy name when applied.
var IamPolicySanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^\w+=,.@-]`),
			Replacement: "_",
		},
	}, 128)
