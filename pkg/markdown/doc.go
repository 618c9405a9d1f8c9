// Package markdown parses and writes .pflow.md workflow documents: a
// markdown file whose structure encodes workflow IR.
//
// Layout:
//
//	---                      optional YAML frontmatter (persisted metadata)
//	# Title                  optional workflow title
//	## Inputs                one ### section per input
//	## Steps                 one ### section per node
//	## Outputs               one ### section per output
//
// Sections carry prose (descriptions), "- key: value" bullets, and fenced
// code blocks with language hints for complex values ("```shell command",
// "```yaml stdin", ...). Fences grow to four or more backticks when content
// embeds triple backticks.
//
// The format encodes linear workflows: steps appear in execution order and
// parsing synthesizes the chain edges. Parse(Write(doc)) is structurally
// equal to the normalized input.
package markdown
