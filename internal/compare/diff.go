package compare

import (
	"encoding/json"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/ivseb/strapi-sync-wizard/internal/content"
)

// Diff renders a unified diff of the normalized source and target
// trees of a DIFFERENT result. Other states return the empty string.
func Diff(r Result) (string, error) {
	if r.State != StateDifferent || r.Source == nil || r.Target == nil {
		return "", nil
	}

	srcText, err := prettyJSON(r.Source.Normalized)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", r.Source.DocumentID, err)
	}
	dstText, err := prettyJSON(r.Target.Normalized)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", r.Target.DocumentID, err)
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(dstText),
		B:        difflib.SplitLines(srcText),
		FromFile: "target/" + r.Target.DocumentID,
		ToFile:   "source/" + r.Source.DocumentID,
		Context:  3,
	})
}

func prettyJSON(obj content.Object) (string, error) {
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
