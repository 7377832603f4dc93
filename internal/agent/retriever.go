package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

// Retriever summarizes a knowledge-base directory's markdown/text
// files against a case description. Any failure (missing directory,
// unreadable files, LLM error) degrades to the empty sentinel rather
// than aborting the run.
type Retriever struct {
	Transport *Transport
}

var sentinel = types.RetrieverOutput{Items: []string{}, Summary: ""}

// Retrieve enumerates *.md/*.txt files non-recursively under dir,
// concatenates their bodies, and asks the LLM for a case-focused summary.
func (r *Retriever) Retrieve(ctx context.Context, caseDescription, dir string) types.RetrieverOutput {
	if dir == "" {
		return sentinel
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return sentinel
	}

	var docs strings.Builder
	found := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".md" && ext != ".txt" {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		found = true
		docs.WriteString("## ")
		docs.WriteString(e.Name())
		docs.WriteString("\n")
		docs.Write(body)
		docs.WriteString("\n\n")
	}
	if !found {
		return sentinel
	}

	raw, err := r.Transport.complete(ctx, retrieverPrompt(caseDescription, docs.String()))
	if err != nil {
		return sentinel
	}
	var out types.RetrieverOutput
	if err := decodeJSON(raw, &out); err != nil {
		return sentinel
	}
	if out.Items == nil {
		out.Items = []string{}
	}
	return out
}
