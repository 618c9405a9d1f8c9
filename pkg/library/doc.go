// Package library manages the user's saved workflows: named .pflow.md files
// under ~/.pflow/workflows. It resolves workflow references (saved name,
// file path or raw markdown content) to parsed documents and maintains
// per-workflow execution metadata in the frontmatter, with secrets redacted
// before anything is persisted.
package library
