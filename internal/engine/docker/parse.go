package docker

import (
	"encoding/json"
	"strings"
	"unicode"
)

// instruction is one logical Dockerfile instruction with continuations joined.
type instruction struct {
	cmd  string // upper-cased keyword
	args string
	line int // 1-based line of the keyword
}

// parse splits a Dockerfile into instructions. Comment lines are dropped,
// also inside a continuation, as the Docker builder does.
func parse(content string) []instruction {
	var out []instruction
	var cur strings.Builder
	start := 0
	for i, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if strings.HasPrefix(line, "#") || (line == "" && cur.Len() == 0) {
			continue
		}
		if cur.Len() == 0 {
			start = i + 1
		}
		cont := strings.HasSuffix(line, `\`)
		cur.WriteString(strings.TrimSuffix(line, `\`))
		if cont {
			cur.WriteByte(' ')
			continue
		}
		if ins, ok := newInstruction(cur.String(), start); ok {
			out = append(out, ins)
		}
		cur.Reset()
	}
	if cur.Len() > 0 {
		if ins, ok := newInstruction(cur.String(), start); ok {
			out = append(out, ins)
		}
	}
	return out
}

func newInstruction(text string, line int) (instruction, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return instruction{}, false
	}
	cmd, args := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		cmd, args = text[:i], text[i:]
	}
	return instruction{cmd: strings.ToUpper(cmd), args: strings.TrimSpace(args), line: line}, true
}

// words returns the arguments with --flags removed. The exec form
// ["a", "b"] is decoded as JSON.
func (ins instruction) words() []string {
	var fields []string
	if strings.HasPrefix(ins.args, "[") {
		if err := json.Unmarshal([]byte(ins.args), &fields); err != nil {
			fields = strings.Fields(ins.args)
		}
	} else {
		fields = strings.Fields(ins.args)
	}
	out := fields[:0]
	for _, f := range fields {
		if !strings.HasPrefix(f, "--") {
			out = append(out, f)
		}
	}
	return out
}
