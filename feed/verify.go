package feed

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// Verify parses rendered feed XML back with a real feed parser, returning
// the parsed feed. Used by `confcast feed --check` and tests to catch
// malformed output before it is published.
func Verify(data []byte) (*gofeed.Feed, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("rendered feed does not parse: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, fmt.Errorf("rendered feed has no episodes")
	}
	return parsed, nil
}
