package sourcemetrics

import (
	"bufio"
	"bytes"
	"io"
	"path"
	"strings"
)

// Counts is the line classification of one file or of many summed together.
// Lines == Blank + Comment + Code always holds.
type Counts struct {
	Blank   uint64 `json:"blank"`
	Comment uint64 `json:"comment"`
	Code    uint64 `json:"code"`
	Lines   uint64 `json:"lines"`
}

// Add accumulates o into c.
func (c *Counts) Add(o Counts) {
	c.Blank += o.Blank
	c.Comment += o.Comment
	c.Code += o.Code
	c.Lines += o.Lines
}

// Syntax describes how a language writes comments.
type Syntax struct {
	Name  string
	Line  []string    // line comment openers
	Block [][2]string // block comment open/close pairs
}

var (
	cFamily = Syntax{Name: "c-family", Line: []string{"//"}, Block: [][2]string{{"/*", "*/"}}}
	hash    = Syntax{Name: "hash", Line: []string{"#"}}
	dashes  = Syntax{Name: "dashes", Line: []string{"--"}}
	markup  = Syntax{Name: "markup", Block: [][2]string{{"<!--", "-->"}}}
	// Plain has no comment syntax: every non-blank line is code.
	Plain = Syntax{Name: "plain"}
)

var syntaxByExt = map[string]Syntax{
	".go": cFamily, ".rs": cFamily, ".c": cFamily, ".h": cFamily, ".cc": cFamily,
	".cpp": cFamily, ".hpp": cFamily, ".java": cFamily, ".kt": cFamily, ".js": cFamily,
	".jsx": cFamily, ".ts": cFamily, ".tsx": cFamily, ".cs": cFamily, ".swift": cFamily,
	".scala": cFamily, ".proto": cFamily, ".css": cFamily,

	".py": hash, ".sh": hash, ".bash": hash, ".zsh": hash, ".rb": hash,
	".yaml": hash, ".yml": hash, ".toml": hash, ".pl": hash, ".r": hash,

	".sql": dashes, ".lua": dashes, ".hs": dashes,

	".html": markup, ".xml": markup, ".md": markup,
}

// SyntaxFor picks the comment syntax from a file name's extension.
// Unsupported types get Plain.
func SyntaxFor(name string) Syntax {
	if s, ok := syntaxByExt[strings.ToLower(path.Ext(name))]; ok {
		return s
	}
	return Plain
}

// Classify counts blank, comment and code lines of r.
//
// A line is blank if it holds only whitespace. It is a comment if it lies
// inside a block comment or starts with a comment opener and carries no code
// after the comment closes. Anything else is code.
func Classify(r io.Reader, syn Syntax) (Counts, error) {
	var c Counts
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	inBlock := ""
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		c.Lines++

		if inBlock != "" {
			idx := strings.Index(line, inBlock)
			if idx < 0 {
				if line == "" {
					c.Blank++
				} else {
					c.Comment++
				}
				continue
			}
			rest := strings.TrimSpace(line[idx+len(inBlock):])
			inBlock = ""
			if isCode(rest, syn, &inBlock) {
				c.Code++
			} else {
				c.Comment++
			}
			continue
		}

		if line == "" {
			c.Blank++
			continue
		}
		if isCode(line, syn, &inBlock) {
			c.Code++
		} else {
			c.Comment++
		}
	}
	if err := sc.Err(); err != nil {
		return Counts{}, err
	}
	return c, nil
}

// isCode reports whether line (trimmed, outside any block comment) carries
// code. Leading comments are consumed; an unterminated block opener sets
// *inBlock to its closer.
func isCode(line string, syn Syntax, inBlock *string) bool {
	for line != "" {
		for _, lc := range syn.Line {
			if strings.HasPrefix(line, lc) {
				return false
			}
		}
		opened := false
		for _, bc := range syn.Block {
			if !strings.HasPrefix(line, bc[0]) {
				continue
			}
			opened = true
			body := line[len(bc[0]):]
			idx := strings.Index(body, bc[1])
			if idx < 0 {
				*inBlock = bc[1]
				return false
			}
			line = strings.TrimSpace(body[idx+len(bc[1]):])
			break
		}
		if !opened {
			*inBlock = trailingBlock(line, syn)
			return true
		}
	}
	return false
}

// trailingBlock returns the closer of a block comment that opens after code
// on line and is still open at its end, or "". Openers behind a line comment
// opener do not count.
func trailingBlock(line string, syn Syntax) string {
	for {
		at, open, closer := -1, "", ""
		for _, bc := range syn.Block {
			if i := strings.Index(line, bc[0]); i >= 0 && (at < 0 || i < at) {
				at, open, closer = i, bc[0], bc[1]
			}
		}
		if at < 0 {
			return ""
		}
		for _, lc := range syn.Line {
			if i := strings.Index(line, lc); i >= 0 && i < at {
				return ""
			}
		}
		rest := line[at+len(open):]
		end := strings.Index(rest, closer)
		if end < 0 {
			return closer
		}
		line = rest[end+len(closer):]
	}
}

// CountMarker counts non-overlapping occurrences of marker in data.
func CountMarker(data []byte, marker string) uint64 {
	if marker == "" {
		return 0
	}
	return uint64(bytes.Count(data, []byte(marker)))
}
