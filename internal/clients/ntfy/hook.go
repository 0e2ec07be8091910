package ntfy

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/vietddude/devkit/internal/core/domain"
)

// IncludeCwd controls whether hook context is appended to a message.
type IncludeCwd string

const (
	IncludeAuto IncludeCwd = "auto"
	IncludeYes  IncludeCwd = "yes"
	IncludeNo   IncludeCwd = "no"
)

// ReadHookContext decodes hook JSON from r. Invalid or empty input yields
// an empty context.
func ReadHookContext(r io.Reader) domain.HookContext {
	var hc domain.HookContext
	if r == nil {
		return hc
	}
	data, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil || len(strings.TrimSpace(string(data))) == 0 {
		return hc
	}
	if err := json.Unmarshal(data, &hc); err != nil {
		return domain.HookContext{}
	}
	return hc
}

// EnhanceMessage appends project, path, session and model lines. In auto
// mode they are added only when a cwd is known and differs from home.
func EnhanceMessage(message string, hc domain.HookContext, mode IncludeCwd, home string) string {
	include := false
	switch mode {
	case IncludeYes:
		include = true
	case IncludeNo:
		include = false
	default:
		include = hc.Cwd != "" && hc.Cwd != home
	}
	if !include || hc.Cwd == "" {
		return message
	}

	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\n\n📁 Project: ")
	b.WriteString(hc.ProjectName())
	b.WriteString("\n📂 Path: ")
	b.WriteString(hc.Cwd)
	if s := hc.ShortSession(); s != "" {
		b.WriteString("\n🔑 Session: ")
		b.WriteString(s)
	}
	if m := hc.ModelName(); m != "" {
		b.WriteString("\n🤖 Model: ")
		b.WriteString(m)
	}
	return b.String()
}
