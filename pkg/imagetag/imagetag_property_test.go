package imagetag

import (
	"regexp"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var legalTag = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// genSegment generates raw identity segments across the whole printable range
// plus separators, including hostile all-special inputs.
func genSegment() gopter.Gen {
	return gen.IntRange(0, 20).FlatMap(func(v interface{}) gopter.Gen {
		length := v.(int)
		return gen.SliceOfN(length, gen.IntRange(32, 126)).Map(func(chars []int) string {
			result := make([]byte, len(chars))
			for i, c := range chars {
				result[i] = byte(c)
			}
			return string(result)
		})
	}, nil)
}

func TestSanitizeIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("sanitize is idempotent", prop.ForAll(
		func(s string) bool {
			once := Sanitize(s)
			return Sanitize(once) == once
		},
		genSegment(),
	))

	properties.Property("sanitized output is tag-legal or empty", prop.ForAll(
		func(s string) bool {
			out := Sanitize(s)
			return out == "" || legalTag.MatchString(out)
		},
		genSegment(),
	))

	properties.TestingRun(t)
}

func TestEncodeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("encoded tags are legal and decode to the same tenant", prop.ForAll(
		func(userID, appName, functionName string) bool {
			tag, err := Encode("", userID, appName, functionName)
			if Sanitize(userID) == "" {
				return err != nil
			}
			if err != nil {
				return false
			}
			if !legalTag.MatchString(tag.String()) {
				return false
			}
			id := tag.Identity()
			return id.Complete() && id.UserID == Sanitize(userID)
		},
		genSegment(), genSegment(), genSegment(),
	))

	properties.Property("encode is stable across decode/encode round trips", prop.ForAll(
		func(userID, appName, functionName string) bool {
			tag, err := Encode("", userID, appName, functionName)
			if err != nil {
				return true
			}
			id := tag.Identity()
			again, err := Encode(id.Prefix, id.UserID, id.AppName, id.FunctionName)
			return err == nil && again.String() == tag.String()
		},
		genSegment(), genSegment(), genSegment(),
	))

	properties.TestingRun(t)
}
