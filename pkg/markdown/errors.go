package markdown

import "errors"

// Sentinel errors for markdown operations
var (
	ErrNoSteps              = errors.New("workflow document has no steps")
	ErrMalformedFrontmatter = errors.New("malformed YAML frontmatter")
	ErrUnterminatedFence    = errors.New("unterminated code fence")
)
