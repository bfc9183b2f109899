package engines

import "context"

// DocumentEngine converts markup and office documents through pandoc.
type DocumentEngine struct{}

// Name identifies the engine in logs.
func (e *DocumentEngine) Name() string { return "document" }

// Convert runs pandoc with the reader chosen from the detected source
// extension. PDF targets go through xelatex; everything else gets
// standalone output with mathjax.
func (e *DocumentEngine) Convert(ctx context.Context, req Request) (Outcome, error) {
	args := []string{"-f", PandocReader(req.SourceExt), req.Input, "-s"}
	if req.TargetExt == "pdf" {
		args = append(args, "--pdf-engine=xelatex")
	} else {
		args = append(args, "--mathjax")
	}
	args = append(args, "-o", req.Output)

	if err := run(ctx, "engines.document", "pandoc", args...); err != nil {
		return Outcome{}, err
	}
	return Outcome{}, nil
}

// PandocReader maps a source extension to pandoc's reader name.
// Unrecognized extensions fall back to markdown, pandoc's most forgiving
// reader.
func PandocReader(ext string) string {
	switch ext {
	case "html", "htm":
		return "html"
	case "docx":
		return "docx"
	case "odt":
		return "odt"
	case "epub":
		return "epub"
	case "latex", "tex":
		return "latex"
	case "rst":
		return "rst"
	case "rtf":
		return "rtf"
	case "org":
		return "org"
	case "wiki":
		return "mediawiki"
	case "textile":
		return "textile"
	case "fb2":
		return "fb2"
	case "ipynb":
		return "ipynb"
	case "jira":
		return "jira"
	case "opml":
		return "opml"
	case "json":
		return "json"
	case "typst":
		return "typst"
	case "djot":
		return "djot"
	case "csv":
		return "csv"
	case "tsv":
		return "tsv"
	case "t2t":
		return "t2t"
	case "creole":
		return "creole"
	case "twiki":
		return "twiki"
	case "man", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return "man"
	case "xml":
		return "docbook"
	default:
		return "markdown"
	}
}
