package cfn

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/provider/aws"
	awssanitize "github.com/klothoplatform/inference-stack/pkg/sanitization/aws"
)

const hashLength = 8

// LogicalId returns the CloudFormation logical id of `id`. Resources get the CamelCase of their namespace and
// name followed by a hash of the full id, so ids stay stable across syntheses while distinct resources with
// similar names never collide. Parameters and outputs keep their name, since deployments refer to them by it.
func LogicalId(id construct.ResourceId) string {
	if id.Provider == aws.TemplateProvider {
		return awssanitize.LogicalIdSanitizer.Apply(id.Name)
	}
	name := camel(id.Name)
	if ns := camel(id.Namespace); ns != "" && !strings.HasPrefix(name, ns) {
		name = ns + name
	}
	human := awssanitize.LogicalIdSanitizer.Apply(name)
	if max := 255 - hashLength; len(human) > max {
		human = human[:max]
	}
	sum := sha256.Sum256([]byte(id.String()))
	return human + strings.ToUpper(hex.EncodeToString(sum[:]))[:hashLength]
}

// camel splits on anything that is not a letter or digit before converting, so route keys such as
// `POST /inference/detr` become `POSTInferenceDetr`.
func camel(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		words[i] = strcase.ToCamel(w)
	}
	return strings.Join(words, "")
}

// logicalIds assigns the logical id of every resource in `ids`, failing if two resources would share one.
func logicalIds(ids []construct.ResourceId) (map[construct.ResourceId]string, error) {
	result := make(map[construct.ResourceId]string, len(ids))
	owners := make(map[string]construct.ResourceId, len(ids))
	for _, id := range ids {
		lid := LogicalId(id)
		if lid == "" {
			return nil, fmt.Errorf("resource %s has an empty logical id", id)
		}
		if other, ok := owners[lid]; ok {
			return nil, fmt.Errorf("resources %s and %s have the same logical id %s", other, id, lid)
		}
		owners[lid] = id
		result[id] = lid
	}
	return result, nil
}
