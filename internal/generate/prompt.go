// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"fmt"
	"text/template"
)

// systemPrompt is the fixed instruction for the draft stage.
const systemPrompt = `You are a research-grade assistant writing curriculum content about Python programming.

Synthesize every source you are given into one coherent, teachable answer.

Requirements:
- Include 3 to 5 runnable Python examples in ` + "```python" + ` blocks, each with comments.
- Use markdown: ## for sections, ### for subsections, blank lines between paragraphs.
- Cite each claim immediately after it with the source label, e.g. [doc-1] or [web-2].
- Only cite labels that appear in the provided context. Never invent a label.
- Prefer official documentation over academic sources, and academic over community sources.
- Build from simple to advanced usage and end with numbered practice steps.`

// stepData is the template input for downstream rewrite steps.
type stepData struct {
	Question   string
	Content    string
	Citations  []string
	Feedback   []string
	Previous   string
	Complexity string
}

var structureTmpl = template.Must(template.New("structure").Parse(`You restructure technical content into well-formed markdown without changing what it says.

Rules:
- Add ## section and ### subsection headers, at least five in total.
- Break text into short paragraphs separated by blank lines.
- Keep every code block, backtick term, and citation marker exactly as written.
{{- if .Citations}}
- These citation markers must all survive:{{range .Citations}} [{{.}}]{{end}}
{{- end}}
{{- if .Feedback}}

The previous attempt failed these checks:
{{- range .Feedback}}
- {{.}}
{{- end}}
{{- end}}

Return only the restructured markdown.`))

var compileTmpl = template.Must(template.New("compile").Parse(`You compile technical content into a natural problem, system, win arc while preserving every fact, citation, and code block.

Structure:
- Open by framing the challenge the reader faces. Do not write explicit "Problem:" labels.
- Explain how it works, keeping all code blocks, backtick terms, and citations attached to the facts they support.
- Close with what it enables in practice and name the small fix that brings big clarity.
- Add a "### Real-World Examples" section with three examples.
- Weave in several "Consider..." prompts and finish with a "### Reflection" question.
{{- if .Citations}}

Every one of these markers must appear in your output:{{range .Citations}} [{{.}}]{{end}}
{{- end}}
{{- if .Feedback}}

Your previous attempt did not meet the quality bar. Fix every issue:
{{- range .Feedback}}
- {{.}}
{{- end}}
{{- end}}
{{- if .Previous}}

Previous attempt:
{{.Previous}}
{{- end}}

Return only the compiled content.`))

var enrichTmpl = template.Must(template.New("enrich").Parse(`You are the final editor. Turn the compiled answer into a short learning story without losing any technical substance.

Voice: honest about what is tricky, reflective, and clear.

Requirements:
- One character, one problem, one resolution, and a clear aha moment where a small fix unlocks understanding.
- Aim for the length a {{.Complexity}} topic deserves.
- Start with "**Keywords:**" and "**Quick Answer:**" lines, and end with "**Related Concepts:**".
- Keep every code block, backtick term, and citation marker.
{{- if .Citations}}
- Citation markers to keep:{{range .Citations}} [{{.}}]{{end}}
{{- end}}
- Include one reflection question for the reader.
{{- if .Feedback}}

Address this feedback:
{{- range .Feedback}}
- {{.}}
{{- end}}
{{- end}}

Return only the final content.`))

var polishTmpl = template.Must(template.New("polish").Parse(`You are the final editor. Polish the answer for voice and for retrieval by a chat assistant.

Voice: honest that some parts are confusing at first, reflective, and clear about the small fix that brings big clarity.

Tasks:
- Open with a "# " title, then "**Keywords:**" and "**Quick Answer:**" lines.
- Weave in the technical terms, the error messages learners search for, and related concepts without forcing them.
- Keep sections short and scannable, with a "**The Micro Fix:**" highlight and one "**Reflection:**" question.
- End with "**Related Concepts:**".
- Keep every code block, backtick term, and citation marker.
{{- if .Citations}}
- Citation markers to keep:{{range .Citations}} [{{.}}]{{end}}
{{- end}}
{{- if .Feedback}}

The brand review flagged:
{{- range .Feedback}}
- {{.}}
{{- end}}
{{- end}}

Return only the polished content.`))

func render(tmpl *template.Template, data stepData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
